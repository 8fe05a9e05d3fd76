package env

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Env holds the values read from the .env file. Process variables are only
// consulted for keys the file does not set.
var Env map[string]string

// candidate .env locations relative to the working directory of the
// binaries under cmd/
var envFiles = []string{".env", "../../.env", "../../../.env"}

func GetEnv(key, def string) string {
	if val, ok := Env[key]; ok {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvInt reads an integer setting; malformed values fall back to def.
func GetEnvInt(key string, def int) int {
	raw := GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("env: %s=%q is not an integer, using %d", key, raw, def)
		return def
	}
	return v
}

// GetEnvBool accepts the forms of strconv.ParseBool; anything else is def.
func GetEnvBool(key string, def bool) bool {
	raw := GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("env: %s=%q is not a boolean, using %t", key, raw, def)
		return def
	}
	return v
}

// SetupEnvFile loads the first .env file found. Without one only the process
// environment is used, which is the normal case in containers.
func SetupEnvFile() {
	for _, path := range envFiles {
		values, err := godotenv.Read(path)
		if err == nil {
			Env = values
			return
		}
	}
	Env = map[string]string{}
	log.Printf("No .env file found, using process environment only")
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
