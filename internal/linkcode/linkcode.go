// Package linkcode encodes (destination, post) pairs into the opaque start
// token carried by the "raise a note" deep link.
package linkcode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jop2000ksa-sketch/jop2000/internal/core/domain"
)

const prefix = "inq"

// Encode builds the start token for a published post. The format is
// "inq_<destination>_<post>"; destination ids may be negative.
func Encode(destinationID int64, postID int) string {
	return fmt.Sprintf("%s_%d_%d", prefix, destinationID, postID)
}

// Decode reverses Encode. Malformed tokens (wrong prefix, wrong arity,
// non-integer parts) return ErrInvalidToken; whether the post exists is not
// this package's concern.
func Decode(token string) (destinationID int64, postID int, err error) {
	parts := strings.SplitN(token, "_", 3)
	if len(parts) != 3 || parts[0] != prefix {
		return 0, 0, domain.ErrInvalidToken
	}
	destinationID, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, domain.ErrInvalidToken
	}
	postID, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, domain.ErrInvalidToken
	}
	return destinationID, postID, nil
}

// StartLink wraps a token into the bot's deep-link URL.
func StartLink(botUsername, token string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, token)
}
