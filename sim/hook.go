package sim

// HookPos names a point where a Hookable reports to its hooks.
type HookPos struct {
	Name string
}

func (p *HookPos) String() string {
	return p.Name
}

// Engine hook positions. Item is the Event being handled.
var (
	HookPosBeforeEvent = &HookPos{Name: "BeforeEvent"}
	HookPosAfterEvent  = &HookPos{Name: "AfterEvent"}
)

// HookCtx is what a hook receives. Item depends on Pos; each package that
// declares a position documents the type it carries.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   any
}

// Hookable is anything that reports to hooks.
type Hookable interface {
	AcceptHook(hook Hook)
}

// A Hook observes a Hookable. Hooks run synchronously on the engine
// goroutine and must not block.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc adapts a plain function into a Hook.
type HookFunc func(ctx HookCtx)

// Func calls f.
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// OnPos returns a hook that only forwards the items reported at pos.
func OnPos(pos *HookPos, fn func(item any)) Hook {
	return HookFunc(func(ctx HookCtx) {
		if ctx.Pos == pos {
			fn(ctx.Item)
		}
	})
}

// HookableBase keeps the hook list for types that embed it. The zero value
// is ready to use.
type HookableBase struct {
	hooks []Hook
}

// AcceptHook registers a hook. Hooks are invoked in registration order.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.hooks = append(h.hooks, hook)
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// InvokeHook passes ctx to every hook.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}

// Notify reports item at pos on behalf of domain. item is only called when
// at least one hook is registered.
func (h *HookableBase) Notify(domain Hookable, pos *HookPos, item func() any) {
	if len(h.hooks) == 0 {
		return
	}

	h.InvokeHook(HookCtx{Domain: domain, Pos: pos, Item: item()})
}
