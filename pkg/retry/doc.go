// Package retry provides exponential backoff for transient failures against
// the language-model backend.
//
// LM APIs rate-limit and flake; a 429 or a 5xx halfway through a completion
// call is worth a couple of delayed re-attempts, while a 401 or a malformed
// request is not. Callers mark the latter with NonRetryable so Do gives up
// immediately with the cause intact:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    resp, err := client.CreateChatCompletion(ctx, req)
//	    if err != nil {
//	        if isAuthError(err) {
//	            return retry.NonRetryable(err)
//	        }
//	        return err
//	    }
//	    result = resp
//	    return nil
//	})
//
// Delays grow by Multiplier up to MaxDelay, with optional jitter. Context
// cancellation aborts both mid-backoff and between attempts.
package retry
