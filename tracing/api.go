// Package tracing collects task-level traces of a running simulation
// through the kernel's hooking mechanism. Tracing is pay-for-use: a domain
// with no hooks attached skips all bookkeeping.
package tracing

import (
	"github.com/chainsimlab/chainsim/sim"
)

// Hook positions task hooks apply to.
var (
	HookPosTaskStart = &sim.HookPos{Name: "HookPosTaskStart"}
	HookPosTaskEnd   = &sim.HookPos{Name: "HookPosTaskEnd"}
)

// A Tracer consumes task start and end notifications.
type Tracer interface {
	StartTask(task Task)
	EndTask(task Task)
}

// StartTask notifies the tracers attached to the domain about the start of
// a task.
func StartTask(
	id string,
	parentID string,
	domain sim.NamedHookable,
	kind string,
	what string,
	detail interface{},
) {
	if domain.NumHooks() == 0 {
		return
	}

	mustBeTraceable(id, domain, kind, what)

	task := Task{
		ID:       id,
		ParentID: parentID,
		Kind:     kind,
		What:     what,
		Where:    domain.Name(),
		Detail:   detail,
	}
	domain.InvokeHook(sim.HookCtx{
		Domain: domain,
		Pos:    HookPosTaskStart,
		Item:   task,
	})
}

// EndTask notifies the tracers attached to the domain about the end of a
// task.
func EndTask(id string, domain sim.NamedHookable) {
	if domain.NumHooks() == 0 {
		return
	}

	task := Task{
		ID:    id,
		Where: domain.Name(),
	}
	domain.InvokeHook(sim.HookCtx{
		Domain: domain,
		Pos:    HookPosTaskEnd,
		Item:   task,
	})
}

// CollectTrace attaches a tracer to a domain so that it receives all the
// tasks the domain reports.
func CollectTrace(domain sim.NamedHookable, tracer Tracer) {
	domain.AcceptHook(&traceHook{tracer: tracer})
}

type traceHook struct {
	tracer Tracer
}

func (h *traceHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case HookPosTaskStart:
		h.tracer.StartTask(ctx.Item.(Task))
	case HookPosTaskEnd:
		h.tracer.EndTask(ctx.Item.(Task))
	}
}

func mustBeTraceable(
	id string,
	domain sim.NamedHookable,
	kind string,
	what string,
) {
	if id == "" {
		panic("id must not be empty")
	}

	if domain.Name() == "" {
		panic("domain must have a name")
	}

	if kind == "" {
		panic("kind must not be empty")
	}

	if what == "" {
		panic("what must not be empty")
	}
}
