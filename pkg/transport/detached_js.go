//go:build js && wasm

package transport

import (
	"context"
	"fmt"
	"syscall/js"
)

// sendDetached posts through fetch with keepalive so the browser completes
// the request even if the page is unloaded. The promise is not awaited.
func (t *HTTP) sendDetached(_ context.Context, path string, body any) error {
	req, err := t.prepare(path, body)
	if err != nil {
		return err
	}

	fetch := js.Global().Get("fetch")
	if !fetch.Truthy() {
		return fmt.Errorf("weblytics: fetch API not available")
	}

	headers := js.Global().Get("Object").New()
	for k := range req.headers {
		headers.Set(k, req.headers.Get(k))
	}
	opts := js.Global().Get("Object").New()
	opts.Set("method", "POST")
	opts.Set("body", string(req.body))
	opts.Set("headers", headers)
	opts.Set("keepalive", true)

	var onResolve, onReject js.Func
	release := func() {
		onResolve.Release()
		onReject.Release()
	}
	onResolve = js.FuncOf(func(this js.Value, args []js.Value) any {
		defer release()
		if len(args) > 0 && !args[0].Get("ok").Bool() {
			t.warn("teardown delivery failed", "path", path, "status", args[0].Get("status").Int())
		}
		return nil
	})
	onReject = js.FuncOf(func(this js.Value, args []js.Value) any {
		defer release()
		msg := "fetch rejected"
		if len(args) > 0 {
			msg = args[0].Call("toString").String()
		}
		t.warn("teardown delivery failed", "path", path, "error", msg)
		return nil
	})

	fetch.Invoke(req.url, opts).Call("then", onResolve).Call("catch", onReject)
	return nil
}
