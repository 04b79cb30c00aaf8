// Package client is a Go SDK for the Assemblyline malware analysis service.
//
// A Client owns one authenticated session. New detects whether the server
// speaks the legacy (v3) or current (v4) API, logs in with the matching flow
// and fails if the server advertises neither generation:
//
//	c, err := client.New(ctx, "https://assemblyline.local",
//	    client.WithAPIKey("admin", "key-name:secret"),
//	    client.WithRetries(5),
//	)
//
// # Requests
//
// Get, Post, Put and Delete decode the api_response field of the JSON
// envelope into the given value. Download hands the raw response to a
// Decoder such as RawOutput, StreamOutput or FileOutput:
//
//	var sub client.Submission
//	err := c.Get(ctx, client.APIPath("submission", sid), &sub)
//
// Every call retries connection failures and 502/503/504 answers with a
// backoff capped at two seconds, and logs in again when the server reports
// an expired session. Failures surface as *ClientError.
//
// # Streaming search
//
// Stream walks every record of a search with deep paging, fetching pages in
// the background while the caller consumes them:
//
//	seq, err := c.Stream(ctx, "submission", "max_score:>=1000", nil)
//	for rec, err := range seq {
//	    if err != nil {
//	        return err
//	    }
//	    handle(rec)
//	}
package client
