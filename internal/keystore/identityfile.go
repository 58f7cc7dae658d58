package keystore

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/zallet-core/zallet/internal/zerr"
)

// On-disk identity file formats. An unencrypted file stores the identity
// secrets directly, one per line, exactly as decodeIdentities expects; a
// passphrase-encrypted file instead stores the scrypt parameters, salt,
// and a base64 envelope wrapping those same lines, decrypted on unlock.
const (
	unencryptedHeader = "# zallet unencrypted identity file"
	encryptedHeader   = "# zallet encrypted identity file"
)

// GenerateUnencryptedIdentityFile creates a single fresh identity, writes
// it in cleartext to path, and returns its recipient so the caller can
// initialize the keystore's recipient set. An unencrypted identity file's
// identities are loaded into memory at startup and never evicted.
func GenerateUnencryptedIdentityFile(path string) (Recipient, error) {
	id, err := GenerateIdentity()
	if err != nil {
		return Recipient{}, err
	}
	recipient, err := RecipientFromIdentity(id)
	if err != nil {
		return Recipient{}, err
	}
	var sb strings.Builder
	sb.WriteString(unencryptedHeader)
	sb.WriteByte('\n')
	sb.WriteString(base64.RawStdEncoding.EncodeToString(id.Secret[:]))
	sb.WriteByte('\n')
	if err := writeIdentityFile(path, sb.String()); err != nil {
		return Recipient{}, err
	}
	return recipient, nil
}

// GenerateEncryptedIdentityFile creates a single fresh identity, wraps it
// under a key derived from passphrase via scrypt, writes the result to
// path, and returns the identity's recipient. The passphrase itself is
// never stored; only a fresh random salt and the wrapped identity are
// persisted.
func GenerateEncryptedIdentityFile(path, passphrase string) (Recipient, error) {
	id, err := GenerateIdentity()
	if err != nil {
		return Recipient{}, err
	}
	recipient, err := RecipientFromIdentity(id)
	if err != nil {
		return Recipient{}, err
	}

	var salt [16]byte
	if _, err := io.ReadFull(rand.Reader, salt[:]); err != nil {
		return Recipient{}, err
	}
	const n, r, p = 1 << 18, 8, 1

	wrapperID, err := identityFromPassphrase(passphrase, salt, n, r, p)
	if err != nil {
		return Recipient{}, err
	}
	wrapperRecipient, err := RecipientFromIdentity(wrapperID)
	if err != nil {
		return Recipient{}, err
	}

	env, err := Encrypt([]Recipient{wrapperRecipient}, encodeIdentities([]Identity{id}))
	if err != nil {
		return Recipient{}, err
	}

	var sb strings.Builder
	sb.WriteString(encryptedHeader)
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "salt %s\n", base64.RawStdEncoding.EncodeToString(salt[:]))
	fmt.Fprintf(&sb, "scrypt %d %d %d\n", n, r, p)
	sb.WriteString(base64.RawStdEncoding.EncodeToString(serializeEnvelope(env)))
	sb.WriteByte('\n')
	if err := writeIdentityFile(path, sb.String()); err != nil {
		return Recipient{}, err
	}
	return recipient, nil
}

func writeIdentityFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0600)
}

// LoadIdentityFile reads the identity file at path, returning an
// IdentityFile whose Unencrypted field is populated for a cleartext file
// or whose Encrypted field is populated (requiring a subsequent Unlock)
// for a passphrase-protected one.
func LoadIdentityFile(path string) (IdentityFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return IdentityFile{}, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return IdentityFile{}, errors.New("keystore: empty identity file")
	}
	header := scanner.Text()

	switch header {
	case unencryptedHeader:
		var lines []byte
		for scanner.Scan() {
			lines = append(lines, scanner.Bytes()...)
			lines = append(lines, '\n')
		}
		if err := scanner.Err(); err != nil {
			return IdentityFile{}, err
		}
		ids, err := decodeIdentities(lines)
		if err != nil {
			return IdentityFile{}, fmt.Errorf("keystore: %w: %v", zerr.ErrMalformedIdentity, err)
		}
		return IdentityFile{Unencrypted: ids}, nil

	case encryptedHeader:
		if !scanner.Scan() {
			return IdentityFile{}, zerr.ErrMalformedIdentity
		}
		saltLine := strings.TrimPrefix(scanner.Text(), "salt ")
		saltBytes, err := base64.RawStdEncoding.DecodeString(saltLine)
		if err != nil || len(saltBytes) != 16 {
			return IdentityFile{}, zerr.ErrMalformedIdentity
		}
		var salt [16]byte
		copy(salt[:], saltBytes)

		if !scanner.Scan() {
			return IdentityFile{}, zerr.ErrMalformedIdentity
		}
		scryptFields := strings.Fields(strings.TrimPrefix(scanner.Text(), "scrypt "))
		if len(scryptFields) != 3 {
			return IdentityFile{}, zerr.ErrMalformedIdentity
		}
		n, err1 := strconv.Atoi(scryptFields[0])
		r, err2 := strconv.Atoi(scryptFields[1])
		p, err3 := strconv.Atoi(scryptFields[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return IdentityFile{}, zerr.ErrMalformedIdentity
		}

		if !scanner.Scan() {
			return IdentityFile{}, zerr.ErrMalformedIdentity
		}
		envBytes, err := base64.RawStdEncoding.DecodeString(scanner.Text())
		if err != nil {
			return IdentityFile{}, zerr.ErrMalformedIdentity
		}
		env, err := deserializeEnvelope(envBytes)
		if err != nil {
			return IdentityFile{}, zerr.ErrMalformedIdentity
		}
		return IdentityFile{Encrypted: &EncryptedIdentityFile{
			Salt:     salt,
			Envelope: env,
			ScryptN:  n,
			ScryptR:  r,
			ScryptP:  p,
		}}, nil

	default:
		return IdentityFile{}, zerr.ErrMalformedIdentity
	}
}

