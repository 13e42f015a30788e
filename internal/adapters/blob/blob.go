// Package blob archives uploaded audio files in object storage.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Supported blob drivers.
const (
	DriverNone   = "none"
	DriverMemory = "memory"
	DriverMinio  = "minio"
)

// Sentinel kinds for blob errors.
var (
	ErrUnknownDriver = errors.New("unknown blob driver")
	ErrInvalidKey    = errors.New("invalid object key")
)

// Store puts objects into a bucket-like namespace.
type Store interface {
	// Put stores size bytes from r under key. A negative size streams
	// until EOF.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// Settings selects and configures a backend.
type Settings struct {
	Driver    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Open returns the backend named by settings.Driver, or nil for "none".
func Open(ctx context.Context, settings Settings) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(settings.Driver)) {
	case "", DriverNone:
		return nil, nil
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverMinio:
		s, err := ConnectMinio(ctx, settings)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, settings.Driver)
	}
}

// AudioKey names the archived upload of a track:
// audio/<userID>/<trackID><ext>, ext taken from the original file name.
// Both ids must be single path segments.
func AudioKey(userID, trackID, filename string) (string, error) {
	for _, seg := range []string{userID, trackID} {
		if !validSegment(seg) {
			return "", fmt.Errorf("%w: segment %q", ErrInvalidKey, seg)
		}
	}
	ext := strings.ToLower(path.Ext(filename))
	return "audio/" + userID + "/" + trackID + ext, nil
}

func validSegment(s string) bool {
	return s != "" && s != "." && !strings.Contains(s, "..") && !strings.ContainsAny(s, `/\`)
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
