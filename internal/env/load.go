package env

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Load reads .env from the working directory without overriding variables
// that are already set. A missing file is not worth more than a debug line.
func Load() {
	err := godotenv.Load()
	if err == nil {
		return
	}
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Msg("no .env file found")
		return
	}
	log.Error().Err(err).Msg("error loading .env file")
}
