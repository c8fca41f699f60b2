// Package mocks provides shared mock implementations for testing.
//
// # Usage
//
//	import "ideenfinder/internal/mocks"
//
//	func TestSomething(t *testing.T) {
//	    mockLLM := mocks.NewMockLLMClient()
//	    mockLLM.RespondForAgent("research", "# Market report", 0)
//	    mockLLM.FailForAgent("techstack", errors.New("boom"))
//	    // Use mockLLM in test...
//	}
//
// Agent routing relies on the agent tag agents put into the request context
// (metrics.WithAgent).
package mocks
