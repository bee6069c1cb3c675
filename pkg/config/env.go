package config

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

func isProductionLike(env string) bool {
	return env == EnvStaging || env == EnvProduction
}
