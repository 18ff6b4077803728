package llm

// Options contains the sampling parameters the reply server passes upstream.
// Nil fields are omitted so the provider's defaults apply.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"` // Creativity (0.0-2.0)
	TopP        *float64 `json:"top_p,omitempty"`       // Nucleus sampling threshold
	Seed        *int     `json:"seed,omitempty"`        // Random seed for reproducibility
	NumPredict  *int     `json:"num_predict,omitempty"` // Max tokens to generate
}

// Empty reports whether no option is set.
func (o *Options) Empty() bool {
	return o == nil || (o.Temperature == nil && o.TopP == nil && o.Seed == nil && o.NumPredict == nil)
}
