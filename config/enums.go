package config

// Execution mode of the style pipeline.
// ENUM(development, production)
type Mode int

func (m Mode) IsProduction() bool {
	return m == ModeProduction
}
