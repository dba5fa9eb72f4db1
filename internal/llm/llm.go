// Package llm provides text generation through an external chat provider.
package llm

// Generator is the text-generation contract: a system instruction plus a
// prompt produce a response. Implementations may fail; callers decide how
// to degrade.
type Generator interface {
	Generate(system, prompt string) (string, error)
}
