// Package script executes JavaScript procedures on an embedded engine.
// Script procedures cover integrations whose request shaping is too ad hoc
// for a database function; they register with kind "script" and carry their
// program text in the binding.
package script

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dop251/goja"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/core/ports"
)

// entryPoint is the function every script procedure must define.
const entryPoint = "process"

// Adapter runs each invocation on a fresh VM, so scripts cannot leak state
// into each other. The program must define process(input); input carries
// unique_id and payload, plus code and data_output for response procedures.
// Whatever process returns is marshaled and handed back as the envelope.
type Adapter struct {
	logger *slog.Logger
}

func NewAdapter(logger *slog.Logger) *Adapter {
	return &Adapter{logger: logger}
}

func (a *Adapter) Invoke(ctx context.Context, proc *domain.ProcedureBinding, inv ports.Invocation) (json.RawMessage, error) {
	if proc.Source == "" {
		return nil, fmt.Errorf("script procedure %s has no source", proc.Handle)
	}

	vm := goja.New()

	// The engine is single-threaded; Interrupt is the only way to stop a
	// runaway script when the stage deadline passes.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt("execution timeout")
		case <-done:
		}
	}()

	console := vm.NewObject()
	if err := console.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, arg.String())
		}
		a.logger.Debug("script console", "procedure", proc.Handle, "message", strings.Join(parts, " "))
		return goja.Undefined()
	}); err != nil {
		return nil, fmt.Errorf("set up console: %w", err)
	}
	if err := vm.Set("console", console); err != nil {
		return nil, fmt.Errorf("set up console: %w", err)
	}

	input := map[string]any{
		"unique_id": inv.UniqueID,
		"payload":   decodeJSON(inv.Payload),
	}
	if inv.UpstreamStatus != nil {
		input["code"] = *inv.UpstreamStatus
		input["data_output"] = decodeJSON(inv.UpstreamBody)
	}

	if _, err := vm.RunString(proc.Source); err != nil {
		return nil, fmt.Errorf("script %s: %w", proc.Handle, err)
	}

	process, ok := goja.AssertFunction(vm.Get(entryPoint))
	if !ok {
		return nil, fmt.Errorf("script %s does not define %s()", proc.Handle, entryPoint)
	}

	result, err := process(goja.Undefined(), vm.ToValue(input))
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", proc.Handle, err)
	}

	raw, err := json.Marshal(result.Export())
	if err != nil {
		return nil, fmt.Errorf("script %s returned unencodable value: %w", proc.Handle, err)
	}
	return raw, nil
}

// decodeJSON exposes raw JSON to the script as plain objects. Non-JSON
// input degrades to a string rather than failing the invocation.
func decodeJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

var _ ports.ProcedureAdapter = (*Adapter)(nil)
