package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MinSaltLength is the shortest LOG_HASH_SALT accepted by InitHashSalt.
const MinSaltLength = 32

const developmentSalt = "gastos-bot-development-salt-not-for-production"

var hashSalt = developmentSalt

// InitHashSalt loads LOG_HASH_SALT from the environment. An unset salt keeps
// the development default and logs a warning. It panics when the salt is
// shorter than MinSaltLength.
func InitHashSalt() {
	salt := os.Getenv("LOG_HASH_SALT")
	if salt == "" {
		Log.Warn().Msg("LOG_HASH_SALT not set, using development salt")
		hashSalt = developmentSalt
		return
	}
	if len(salt) < MinSaltLength {
		panic(fmt.Sprintf("LOG_HASH_SALT must be at least %d characters", MinSaltLength))
	}
	hashSalt = salt
}

// InitHashSaltForTesting sets the salt directly.
func InitHashSaltForTesting(salt string) {
	hashSalt = salt
}

func hashID(id int64) string {
	sum := sha256.Sum256([]byte(strconv.FormatInt(id, 10) + ":" + hashSalt))
	return hex.EncodeToString(sum[:])[:8]
}

// HashUserID returns a short salted hash of a Telegram user ID, safe to log.
func HashUserID(userID int64) string {
	return hashID(userID)
}

// HashChatID returns a short salted hash of a Telegram chat ID.
func HashChatID(chatID int64) string {
	return hashID(chatID)
}

// SanitizeDescription redacts an expense concept, keeping only its shape.
func SanitizeDescription(desc string) string {
	if desc == "" {
		return "<empty>"
	}
	return fmt.Sprintf("<redacted: %d words, %d chars>", len(strings.Fields(desc)), utf8.RuneCountInString(desc))
}

// SanitizeText is a general-purpose sanitizer for any user-provided text.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}

	runes := []rune(text)
	if len(runes) <= 10 {
		return fmt.Sprintf("<%d chars>", len(runes))
	}
	return fmt.Sprintf("%s...<%d chars>", string(runes[:3]), len(runes))
}
