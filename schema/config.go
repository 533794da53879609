package schema

// Config holds the schema registry configuration.
type Config struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "schemas.db"
	}
}
