// Package middleware provides run observers for cross-cutting concerns like
// logging, metrics and timing.
package middleware

import (
	"context"

	"github.com/agentstation/difyflow"
)

// Funcs adapts plain functions to difyflow.Observer. Nil fields are skipped.
type Funcs struct {
	OnNodeStarted  func(ctx context.Context, ev difyflow.NodeEvent)
	OnNodeFinished func(ctx context.Context, ev difyflow.NodeEvent)
	OnRunFinished  func(ctx context.Context, ev difyflow.RunEvent)
}

var _ difyflow.Observer = Funcs{}

// NodeStarted calls OnNodeStarted.
func (f Funcs) NodeStarted(ctx context.Context, ev difyflow.NodeEvent) {
	if f.OnNodeStarted != nil {
		f.OnNodeStarted(ctx, ev)
	}
}

// NodeFinished calls OnNodeFinished.
func (f Funcs) NodeFinished(ctx context.Context, ev difyflow.NodeEvent) {
	if f.OnNodeFinished != nil {
		f.OnNodeFinished(ctx, ev)
	}
}

// RunFinished calls OnRunFinished.
func (f Funcs) RunFinished(ctx context.Context, ev difyflow.RunEvent) {
	if f.OnRunFinished != nil {
		f.OnRunFinished(ctx, ev)
	}
}

type chain []difyflow.Observer

// Chain combines observers into one that notifies each in order.
// Nil observers are dropped.
func Chain(observers ...difyflow.Observer) difyflow.Observer {
	c := make(chain, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			c = append(c, o)
		}
	}
	return c
}

func (c chain) NodeStarted(ctx context.Context, ev difyflow.NodeEvent) {
	for _, o := range c {
		o.NodeStarted(ctx, ev)
	}
}

func (c chain) NodeFinished(ctx context.Context, ev difyflow.NodeEvent) {
	for _, o := range c {
		o.NodeFinished(ctx, ev)
	}
}

func (c chain) RunFinished(ctx context.Context, ev difyflow.RunEvent) {
	for _, o := range c {
		o.RunFinished(ctx, ev)
	}
}
