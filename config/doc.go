// Package config loads the regend configuration from the environment.
//
// Variables use the REGEN_ prefix. An optional .env file is read first;
// variables already set in the environment win over the file. Secret-bearing
// values may be secret references (see package secret).
package config
