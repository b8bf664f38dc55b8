package cookie

import (
	"crypto/sha256"
	"errors"
	"io"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/hkdf"
)

// MinSecretLen is the shortest secret NewCodec accepts.
const MinSecretLen = 32

// DeriveKeys expands one configured secret into independent HMAC and AES keys.
func DeriveKeys(secret []byte) (hashKey, blockKey []byte, err error) {
	if len(secret) < MinSecretLen {
		return nil, nil, errors.New("cookie: secret must be at least 32 bytes")
	}
	hashKey = make([]byte, 64)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte("authcore cookie hash")), hashKey); err != nil {
		return nil, nil, err
	}
	blockKey = make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte("authcore cookie block")), blockKey); err != nil {
		return nil, nil, err
	}
	return hashKey, blockKey, nil
}

// NewCodec builds the signing+encryption codec used by HTTPJar. Values older
// than maxAge seconds fail to decode.
func NewCodec(secret []byte, maxAge int) (*securecookie.SecureCookie, error) {
	hashKey, blockKey, err := DeriveKeys(secret)
	if err != nil {
		return nil, err
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.SetSerializer(securecookie.JSONEncoder{})
	if maxAge > 0 {
		sc.MaxAge(maxAge)
	}
	return sc, nil
}
