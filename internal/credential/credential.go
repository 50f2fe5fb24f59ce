// Package credential issues the bearer tokens printed on tickets and the
// keyed proofs that bind them to a purchase.
package credential

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

const tokenBytes = 32

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

var ErrEmptySecret = errors.New("credential secret is empty")

// Issuer generates credentials and their proofs.
type Issuer struct {
	key  [32]byte
	rand io.Reader
}

// NewIssuer derives the MAC key from secret. Any non-empty secret works;
// it is hashed down to the 32 bytes a keyed BLAKE3 hasher needs.
func NewIssuer(secret string) (*Issuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Issuer{
		key:  blake3.Sum256([]byte(secret)),
		rand: rand.Reader,
	}, nil
}

// Issue returns a fresh random credential and its proof for the purchase.
func (i *Issuer) Issue(purchaseID uuid.UUID, offeringID int64) (credential, proof string, err error) {
	const op = "credential.Issuer.Issue"

	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(i.rand, buf); err != nil {
		return "", "", fmt.Errorf("%s:%w", op, err)
	}

	credential = encoding.EncodeToString(buf)
	proof, err = i.Proof(purchaseID, credential, offeringID)
	if err != nil {
		return "", "", fmt.Errorf("%s:%w", op, err)
	}

	return credential, proof, nil
}

// Proof is hex(BLAKE3-keyed(purchase_id|credential|offering_id)).
func (i *Issuer) Proof(purchaseID uuid.UUID, credential string, offeringID int64) (string, error) {
	hasher, err := blake3.NewKeyed(i.key[:])
	if err != nil {
		return "", err
	}

	hasher.Write([]byte(purchaseID.String()))
	hasher.Write([]byte{'|'})
	hasher.Write([]byte(credential))
	hasher.Write([]byte{'|'})
	hasher.Write([]byte(strconv.FormatInt(offeringID, 10)))

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Verify recomputes the proof and compares it in constant time.
func (i *Issuer) Verify(purchaseID uuid.UUID, credential string, offeringID int64, proof string) bool {
	want, err := i.Proof(purchaseID, credential, offeringID)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(proof)) == 1
}
