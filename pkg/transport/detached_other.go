//go:build !(js && wasm)

package transport

import "context"

// sendDetached issues the request on a context detached from the caller
// and returns without waiting for the response.
func (t *HTTP) sendDetached(ctx context.Context, path string, body any) error {
	req, err := t.prepare(path, body)
	if err != nil {
		return err
	}

	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
	t.teardown.Add(1)
	go func() {
		defer t.teardown.Done()
		defer cancel()
		if _, err := t.do(detached, req); err != nil {
			t.warn("teardown delivery failed", "path", path, "error", err)
			return
		}
		t.debug("teardown delivery sent", "path", path)
	}()
	return nil
}
