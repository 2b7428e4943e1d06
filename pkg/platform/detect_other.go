//go:build !(js && wasm)

package platform

// Detect returns the environment for the current host. Native builds are
// always a server environment; browsers are only reachable from js/wasm.
func Detect() Environment {
	return Server()
}
