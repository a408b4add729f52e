package script

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/Shopify/go-lua"
)

// setupSandbox opens the base, string, table and math libraries and removes
// everything that reaches outside the state.
func setupSandbox(l *lua.State) {
	lua.Require(l, "_G", lua.BaseOpen, true)
	l.Pop(1)
	lua.Require(l, "string", lua.StringOpen, true)
	l.Pop(1)
	lua.Require(l, "table", lua.TableOpen, true)
	l.Pop(1)
	lua.Require(l, "math", lua.MathOpen, true)
	l.Pop(1)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "collectgarbage"} {
		l.PushNil()
		l.SetGlobal(name)
	}

	l.Register("json_encode", jsonEncode)
	l.Register("json_decode", jsonDecode)
	l.Register("str_trim", strTrim)
	l.Register("str_split", strSplit)
	l.Register("str_contains", strContains)
	l.Register("str_replace", strReplace)
}

// pushInputs pushes inputs as a Lua table.
func pushInputs(l *lua.State, inputs map[string]string) {
	l.NewTable()
	for k, v := range inputs {
		l.PushString(v)
		l.SetField(-2, k)
	}
}

// pushValue converts a decoded JSON value to Lua.
func pushValue(l *lua.State, v any) {
	switch val := v.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(val)
	case float64:
		l.PushNumber(val)
	case string:
		l.PushString(val)
	case []any:
		l.NewTable()
		for i, item := range val {
			l.PushInteger(i + 1)
			pushValue(l, item)
			l.SetTable(-3)
		}
	case map[string]any:
		l.NewTable()
		for k, item := range val {
			l.PushString(k)
			pushValue(l, item)
			l.SetTable(-3)
		}
	default:
		l.PushNil()
	}
}

// maxDepth bounds table nesting, which also stops self-referencing tables.
const maxDepth = 32

var errTooDeep = errors.New("table nesting too deep")

// pullValue converts the Lua value at idx to Go. Tables whose keys are
// exactly the integers 1..n become slices; every other table becomes a map
// keyed by the string form of its keys.
func pullValue(l *lua.State, idx int) (any, error) {
	return pull(l, idx, 0)
}

func pull(l *lua.State, idx, depth int) (any, error) {
	switch l.TypeOf(idx) {
	case lua.TypeBoolean:
		return l.ToBoolean(idx), nil
	case lua.TypeNumber:
		n, _ := l.ToNumber(idx)
		return n, nil
	case lua.TypeString:
		s, _ := l.ToString(idx)
		return s, nil
	case lua.TypeTable:
		if depth >= maxDepth {
			return nil, errTooDeep
		}
		return pullTable(l, idx, depth+1)
	default:
		return nil, nil
	}
}

func pullTable(l *lua.State, idx, depth int) (any, error) {
	l.PushValue(idx)
	defer l.Pop(1)

	var keys, values []any
	l.PushNil()
	for l.Next(-2) {
		v, err := pull(l, -1, depth)
		if err != nil {
			l.Pop(2)
			return nil, err
		}
		keys = append(keys, tableKey(l, -2))
		values = append(values, v)
		l.Pop(1)
	}

	if arr, ok := asArray(keys, values); ok {
		return arr, nil
	}
	obj := make(map[string]any, len(keys))
	for i, k := range keys {
		switch key := k.(type) {
		case float64:
			obj[strconv.FormatFloat(key, 'f', -1, 64)] = values[i]
		case string:
			obj[key] = values[i]
		}
	}
	return obj, nil
}

// tableKey reads the key at idx without converting it in place, which
// would break l.Next.
func tableKey(l *lua.State, idx int) any {
	switch l.TypeOf(idx) {
	case lua.TypeNumber:
		n, _ := l.ToNumber(idx)
		return n
	case lua.TypeString:
		s, _ := l.ToString(idx)
		return s
	case lua.TypeBoolean:
		return strconv.FormatBool(l.ToBoolean(idx))
	default:
		return lua.TypeNameOf(l, idx)
	}
}

func asArray(keys, values []any) ([]any, bool) {
	if len(keys) == 0 {
		return nil, false
	}
	arr := make([]any, len(keys))
	for i, k := range keys {
		n, ok := k.(float64)
		if !ok || n != math.Trunc(n) || n < 1 || n > float64(len(keys)) {
			return nil, false
		}
		arr[int(n)-1] = values[i]
	}
	return arr, true
}

func jsonEncode(l *lua.State) int {
	value, err := pullValue(l, 1)
	if err != nil {
		l.PushNil()
		l.PushString(err.Error())
		return 2
	}
	data, err := json.Marshal(value)
	if err != nil {
		l.PushNil()
		l.PushString(err.Error())
		return 2
	}
	l.PushString(string(data))
	return 1
}

func jsonDecode(l *lua.State) int {
	var value any
	if err := json.Unmarshal([]byte(lua.CheckString(l, 1)), &value); err != nil {
		l.PushNil()
		l.PushString(err.Error())
		return 2
	}
	pushValue(l, value)
	return 1
}

func strTrim(l *lua.State) int {
	l.PushString(strings.TrimSpace(lua.CheckString(l, 1)))
	return 1
}

func strSplit(l *lua.State) int {
	parts := strings.Split(lua.CheckString(l, 1), lua.CheckString(l, 2))
	l.NewTable()
	for i, part := range parts {
		l.PushInteger(i + 1)
		l.PushString(part)
		l.SetTable(-3)
	}
	return 1
}

func strContains(l *lua.State) int {
	l.PushBoolean(strings.Contains(lua.CheckString(l, 1), lua.CheckString(l, 2)))
	return 1
}

func strReplace(l *lua.State) int {
	str := lua.CheckString(l, 1)
	old := lua.CheckString(l, 2)
	repl := lua.CheckString(l, 3)
	count := -1
	if l.Top() >= 4 {
		count = lua.CheckInteger(l, 4)
	}
	l.PushString(strings.Replace(str, old, repl, count))
	return 1
}
