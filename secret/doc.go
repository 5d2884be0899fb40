// Package secret resolves secret-bearing configuration values.
//
// A value may reference a secret instead of carrying it:
//
//	REGEN_REDIS_PASSWORD=secretref:file:redis_password
//	REGEN_GENERATOR_API_KEY=secretref:env:OPENAI_API_KEY
//	REGEN_GENERATOR_URL=https://gen.internal/v1?key=secretref:env:GEN_KEY
//
// References are resolved by named providers: "env" reads another
// environment variable, "file" reads a file under a secrets directory
// (Docker and Kubernetes mount them at /run/secrets). ${VAR} expansion is
// applied first and fails on unset variables.
package secret
