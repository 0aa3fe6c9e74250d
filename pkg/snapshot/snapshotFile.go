package snapshot

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Layr-Labs/offering-ledger/pkg/storage"
	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// SnapshotFile is a single exported offering and the files stored next to it.
type SnapshotFile struct {
	Dir              string
	SnapshotFileName string
	CreatedTimestamp time.Time
	OfferingId       string
	// Version is the version of the program that wrote the snapshot.
	Version string
}

func (sf *SnapshotFile) HashExt() string {
	return "sha256"
}

func (sf *SnapshotFile) SignatureExt() string {
	return "asc"
}

func (sf *SnapshotFile) HashFileName() string {
	return fmt.Sprintf("%s.%s", sf.SnapshotFileName, sf.HashExt())
}

func (sf *SnapshotFile) SignatureFileName() string {
	return fmt.Sprintf("%s.%s", sf.SnapshotFileName, sf.SignatureExt())
}

func (sf *SnapshotFile) FullPath() string {
	return filepath.Join(sf.Dir, sf.SnapshotFileName)
}

func (sf *SnapshotFile) HashFilePath() string {
	return filepath.Join(sf.Dir, sf.HashFileName())
}

func (sf *SnapshotFile) SignatureFilePath() string {
	return filepath.Join(sf.Dir, sf.SignatureFileName())
}

// ValidateHash compares the snapshot's sha256 with the one recorded in its hash file.
func (sf *SnapshotFile) ValidateHash() error {
	hashFile, err := os.ReadFile(sf.HashFilePath())
	if err != nil {
		return fmt.Errorf("error reading hash file: %w", err)
	}
	// hash file layout:
	// <hash> <filename>
	fields := strings.Fields(string(hashFile))
	if len(fields) == 0 {
		return fmt.Errorf("hash file '%s' is empty", sf.HashFilePath())
	}

	sum, err := sf.GenerateSnapshotHash()
	if err != nil {
		return fmt.Errorf("error generating snapshot hash: %w", err)
	}

	if sum != fields[0] {
		return fmt.Errorf("%w: %s != %s", ErrHashMismatch, sum, fields[0])
	}
	return nil
}

func (sf *SnapshotFile) GenerateSnapshotHash() (string, error) {
	f, err := os.Open(sf.FullPath())
	if err != nil {
		return "", fmt.Errorf("error opening snapshot file: %w", err)
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", fmt.Errorf("error reading snapshot file: %w", err)
	}
	return strings.TrimPrefix(hexutil.Encode(hash.Sum(nil)), "0x"), nil
}

func (sf *SnapshotFile) GenerateAndSaveSnapshotHash() error {
	sum, err := sf.GenerateSnapshotHash()
	if err != nil {
		return fmt.Errorf("error generating snapshot hash: %w", err)
	}

	content := fmt.Sprintf("%s %s\n", sum, sf.SnapshotFileName)
	if err := os.WriteFile(sf.HashFilePath(), []byte(content), 0644); err != nil {
		return fmt.Errorf("error writing hash file: %w", err)
	}
	return nil
}

// ValidateSignature checks the detached, armored signature next to the snapshot against
// the armored public key and returns the signer.
func (sf *SnapshotFile) ValidateSignature(publicKey string) (*openpgp.Entity, error) {
	keyRing, err := openpgp.ReadArmoredKeyRing(strings.NewReader(publicKey))
	if err != nil {
		return nil, fmt.Errorf("error reading armored key ring: %w", err)
	}

	signatureFile, err := os.Open(sf.SignatureFilePath())
	if err != nil {
		return nil, fmt.Errorf("error opening signature file: %w", err)
	}
	defer signatureFile.Close()

	originalFile, err := os.Open(sf.FullPath())
	if err != nil {
		return nil, fmt.Errorf("error opening snapshot file: %w", err)
	}
	defer originalFile.Close()

	signer, err := openpgp.CheckArmoredDetachedSignature(keyRing, originalFile, signatureFile, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return signer, nil
}

// ClearFiles removes the snapshot, hash and signature files, ignoring errors.
func (sf *SnapshotFile) ClearFiles() {
	_ = os.Remove(sf.FullPath())
	_ = os.Remove(sf.HashFilePath())
	_ = os.Remove(sf.SignatureFilePath())
}

// SaveRecords writes records as indented json, replacing any previous content.
func (sf *SnapshotFile) SaveRecords(records *storage.Records) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshalling records: %w", err)
	}
	if err := os.WriteFile(sf.FullPath(), data, 0644); err != nil {
		return fmt.Errorf("error writing snapshot file: %w", err)
	}
	return nil
}

func (sf *SnapshotFile) LoadRecords() (*storage.Records, error) {
	data, err := os.ReadFile(sf.FullPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrStateNotFound
		}
		return nil, fmt.Errorf("error reading snapshot file: %w", err)
	}
	records := &storage.Records{}
	if err := json.Unmarshal(data, records); err != nil {
		return nil, fmt.Errorf("error parsing snapshot file: %w", err)
	}
	if records.Offering == nil {
		return nil, fmt.Errorf("snapshot file '%s' has no offering", sf.FullPath())
	}
	return records, nil
}

func (sf *SnapshotFile) Close() error {
	return nil
}

// newSnapshotFile describes an existing snapshot at path.
func newSnapshotFile(path string) *SnapshotFile {
	return &SnapshotFile{
		Dir:              filepath.Dir(path),
		SnapshotFileName: filepath.Base(path),
	}
}

// newSnapshotExportFile names a new snapshot after the offering, version and current time.
func newSnapshotExportFile(dir string, offeringId string, version string, now time.Time) *SnapshotFile {
	// YYYYMMDDhhmmss
	date := now.UTC().Format("20060102150405")

	return &SnapshotFile{
		Dir:              dir,
		SnapshotFileName: fmt.Sprintf("offering_%s_%s_%s.json", offeringId, version, date),
		CreatedTimestamp: now,
		OfferingId:       offeringId,
		Version:          version,
	}
}
