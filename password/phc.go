package password

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const algorithmID = "argon2id"

// ErrMalformedHash is returned for stored hashes that are not argon2id PHC
// strings this package can verify.
var ErrMalformedHash = errors.New("password: malformed hash")

var b64 = base64.StdEncoding

// params are the argon2id cost settings recorded in a PHC string.
type params struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

// weakerThan reports whether any cost in p is below the same cost in target.
func (p params) weakerThan(target params) bool {
	return p.memory < target.memory ||
		p.time < target.time ||
		p.parallelism < target.parallelism
}

// phc is one decoded $argon2id$v=19$m=..,t=..,p=..$salt$key string.
type phc struct {
	params
	salt []byte
	key  []byte
}

func (h phc) String() string {
	return "$" + algorithmID +
		"$v=" + strconv.Itoa(argon2.Version) +
		"$m=" + strconv.FormatUint(uint64(h.memory), 10) +
		",t=" + strconv.FormatUint(uint64(h.time), 10) +
		",p=" + strconv.FormatUint(uint64(h.parallelism), 10) +
		"$" + b64.EncodeToString(h.salt) +
		"$" + b64.EncodeToString(h.key)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedHash, fmt.Sprintf(format, args...))
}

func decodePHC(encoded string) (phc, error) {
	var h phc

	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return h, malformed("expected 5 $-separated fields")
	}
	if fields[1] != algorithmID {
		return h, malformed("algorithm %q", fields[1])
	}

	version, ok := strings.CutPrefix(fields[2], "v=")
	if !ok {
		return h, malformed("missing version")
	}
	if v, err := strconv.Atoi(version); err != nil || v != argon2.Version {
		return h, malformed("unsupported version %q", version)
	}

	p, err := decodeParams(fields[3])
	if err != nil {
		return h, err
	}
	h.params = p

	if h.salt, err = b64.DecodeString(fields[4]); err != nil || len(h.salt) < minSaltLength {
		return h, malformed("bad salt")
	}
	if h.key, err = b64.DecodeString(fields[5]); err != nil || len(h.key) == 0 {
		return h, malformed("bad key")
	}
	return h, nil
}

func decodeParams(field string) (params, error) {
	var p params
	seen := map[string]bool{}

	for _, pair := range strings.Split(field, ",") {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || seen[name] {
			return p, malformed("parameter %q", pair)
		}
		seen[name] = true

		bits := 32
		if name == "p" {
			bits = 8
		}
		v, err := strconv.ParseUint(raw, 10, bits)
		if err != nil {
			return p, malformed("parameter %q", pair)
		}

		switch name {
		case "m":
			p.memory = uint32(v)
		case "t":
			p.time = uint32(v)
		case "p":
			p.parallelism = uint8(v)
		default:
			return p, malformed("unknown parameter %q", name)
		}
	}

	if len(seen) != 3 {
		return p, malformed("want m, t and p parameters")
	}
	if p.memory < minMemoryKB || p.time < 1 || p.parallelism < 1 {
		return p, malformed("cost below minimum")
	}
	return p, nil
}
