// Package gemini transcribes songs through the Gemini generateContent API.
//
// The audio is sent inline with a prompt asking for a JSON array of sung
// phrases. Gemini returns phrase-level timings only, so segments carry no
// words and range matching falls back to whole phrases. Throttling and server
// errors are retried with exponential backoff.
package gemini
