package configs

// Auth configures bearer token verification. Tokens are HS256 JWTs whose
// subject claim names the calling account.
type Auth struct {
	Secret string `env:"SECRET,required,notEmpty"`
	// Issuer, when set, must match the token's iss claim.
	Issuer string `env:"ISSUER"`
}
