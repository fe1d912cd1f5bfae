/*
Package contrib provides ready-made contributors for HTTP-style pipelines.

  - APIKey rejects requests without a known key during authentication.
  - Resources matches routes with chi during uri_matching, checks the method
    during handler_selection and runs the operation during
    operation_execution.
  - JSONRenderer turns the operation result into a JSON response.
  - RequestID echoes the X-Request-ID header on the response.

RegisterBuiltins makes them resolvable from a registry.Registry.
*/
package contrib
