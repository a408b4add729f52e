package difyflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Gateway names reported in NodeEvent.
const (
	GatewayLanguageModel = "language_model"
	GatewayRetriever     = "retriever"
	GatewayScript        = "script"
)

var errNotConfigured = errors.New("not configured")

// outcome is what a node visit tells the traversal loop.
type outcome struct {
	hint      string
	answer    string
	done      bool
	completed bool
	gateway   string
}

// visit dispatches on the node's data variant.
func (r *run) visit(ctx context.Context, node Node) (outcome, error) {
	switch d := node.Data.(type) {
	case StartData:
		return outcome{}, nil
	case ClassifierData:
		return r.visitClassifier(ctx, node, d)
	case RetrievalData:
		return r.visitRetrieval(ctx, node)
	case LLMData:
		return r.visitLLM(ctx, node, d)
	case AnswerData:
		return outcome{
			answer:    ResolveReference(d.Answer, r.vars),
			done:      true,
			completed: true,
		}, nil
	case CodeData:
		return r.visitCode(ctx, node, d)
	default:
		return r.visitUnsupported(ctx, node)
	}
}

func (r *run) visitClassifier(ctx context.Context, node Node, d ClassifierData) (outcome, error) {
	if len(d.Classes) == 0 {
		r.engine.opts.logger.Warn(ctx, "classifier has no classes", "run_id", r.id, "node", node.ID)
		return outcome{}, nil
	}

	prompt := ClassifierPrompt(r.vars.Query(), d.Classes)
	reply, err := r.complete(ctx, node, []Message{{Role: RoleUser, Text: prompt}})
	if err != nil {
		return called(GatewayLanguageModel, err), err
	}

	class := strings.TrimSpace(reply)
	r.vars.Set(VarKey(node.ID, FieldClass), class)
	r.engine.opts.logger.Debug(ctx, "classified query", "run_id", r.id, "node", node.ID, "class", class)
	return outcome{hint: class, gateway: GatewayLanguageModel}, nil
}

func (r *run) visitRetrieval(ctx context.Context, node Node) (outcome, error) {
	if r.engine.retriever == nil {
		return outcome{}, &GatewayError{Kind: ErrRetrieval, NodeID: node.ID, Err: errNotConfigured}
	}

	out := outcome{gateway: GatewayRetriever}

	text, err := await(ctx, func(ctx context.Context) (string, error) {
		return r.engine.retriever.Retrieve(ctx, r.vars.Query())
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, r.cancelled(node.ID, ctxErr)
		}
		return out, &GatewayError{Kind: ErrRetrieval, NodeID: node.ID, Err: err}
	}

	r.vars.Set(VarKey(node.ID, FieldResult), text)
	return out, nil
}

func (r *run) visitLLM(ctx context.Context, node Node, d LLMData) (outcome, error) {
	if len(d.PromptTemplates) == 0 {
		return outcome{}, &NodeError{Kind: ErrMissingTemplate, NodeID: node.ID, NodeType: TypeLLM}
	}

	var snippet string
	if d.Context != nil && d.Context.Enabled {
		snippet = ResolveSelector(r.vars, d.Context.VariableSelector)
	}
	system := SubstituteContext(systemTemplate(d.PromptTemplates), snippet)

	reply, err := r.complete(ctx, node, []Message{
		{Role: RoleSystem, Text: system},
		{Role: RoleUser, Text: r.vars.Query()},
	})
	if err != nil {
		return called(GatewayLanguageModel, err), err
	}

	r.vars.Set(VarKey(node.ID, FieldText), reply)
	return outcome{gateway: GatewayLanguageModel}, nil
}

func (r *run) visitCode(ctx context.Context, node Node, d CodeData) (outcome, error) {
	scripts := r.engine.opts.scripts
	if scripts == nil {
		return outcome{}, &NodeError{Kind: ErrUnsupportedType, NodeID: node.ID, NodeType: TypeCode, Err: errors.New("no script runner")}
	}
	if d.Language != "" && !strings.EqualFold(d.Language, "lua") {
		return outcome{}, &NodeError{
			Kind:     ErrUnsupportedType,
			NodeID:   node.ID,
			NodeType: TypeCode,
			Err:      fmt.Errorf("language %q", d.Language),
		}
	}

	inputs := make(map[string]string, len(d.Inputs))
	for _, in := range d.Inputs {
		inputs[in.Name] = ResolveSelector(r.vars, in.Selector)
	}

	out := outcome{gateway: GatewayScript}
	result, err := await(ctx, func(ctx context.Context) (string, error) {
		return scripts.Run(ctx, d.Script, inputs)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, r.cancelled(node.ID, ctxErr)
		}
		return out, &NodeError{Kind: ErrScriptFailed, NodeID: node.ID, NodeType: TypeCode, Err: err}
	}

	r.vars.Set(VarKey(node.ID, FieldResult), result)
	return out, nil
}

func (r *run) visitUnsupported(ctx context.Context, node Node) (outcome, error) {
	if !r.engine.opts.lenient {
		return outcome{}, &NodeError{Kind: ErrUnsupportedType, NodeID: node.ID, NodeType: node.Type()}
	}
	r.engine.opts.logger.Warn(ctx, "unsupported node type", "run_id", r.id, "node", node.ID, "type", node.Type())
	return outcome{
		answer: UnsupportedAnswer(node.Type()),
		done:   true,
	}, nil
}

// called is the outcome of a failed gateway visit: gw is reported only when
// the gateway was configured and therefore actually called.
func called(gw string, err error) outcome {
	if errors.Is(err, errNotConfigured) {
		return outcome{}
	}
	return outcome{gateway: gw}
}

// complete calls the language model on behalf of node.
func (r *run) complete(ctx context.Context, node Node, messages []Message) (string, error) {
	if r.engine.lm == nil {
		return "", &GatewayError{Kind: ErrLanguageModel, NodeID: node.ID, Err: errNotConfigured}
	}
	reply, err := await(ctx, func(ctx context.Context) (string, error) {
		return r.engine.lm.Complete(ctx, messages)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", r.cancelled(node.ID, ctxErr)
		}
		return "", &GatewayError{Kind: ErrLanguageModel, NodeID: node.ID, Err: err}
	}
	return reply, nil
}

// ClassifierPrompt builds the single user message sent by a classifier node.
func ClassifierPrompt(query string, classes []Class) string {
	var b strings.Builder
	b.WriteString("Classify the following question into the most suitable category. Return only the category ID.\n\n")
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\nCategories:\n")
	for _, c := range classes {
		fmt.Fprintf(&b, "- ID: %s, Name: %s\n", c.ID, c.Name)
	}
	return b.String()
}

// UnsupportedAnswer is the answer of a lenient run that reached a node type
// without a handler.
func UnsupportedAnswer(t NodeType) string {
	return "unable to process node type: " + string(t)
}

// systemTemplate returns the text of the first system template, or "".
func systemTemplate(templates []PromptTemplate) string {
	for _, t := range templates {
		if t.Role == RoleSystem {
			return t.Text
		}
	}
	return ""
}
