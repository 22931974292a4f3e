package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/luckylad/invoiceflow/internal/core/domain"
	"github.com/luckylad/invoiceflow/internal/core/ports"
)

// Archiver places accepted documents into the processed hierarchy:
// base/{well-or-vendor}/{YYYY-MM}/filename. Well name wins when the
// record carries one so field staff can browse by lease.
type Archiver struct {
	basePath string
	storage  ports.ObjectStorage
	nowFn    func() time.Time
}

func New(basePath string, storage ports.ObjectStorage) (*Archiver, error) {
	if basePath == "" {
		basePath = "./data/processed"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &Archiver{basePath: basePath, storage: storage, nowFn: time.Now}, nil
}

func (a *Archiver) Archive(ctx context.Context, doc *domain.Document, rec *domain.StandardizedRecord) (string, error) {
	dir := filepath.Join(a.basePath, folderFor(rec), a.nowFn().UTC().Format("2006-01"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive subdir: %w", err)
	}

	src, err := a.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source for archive: %w", err)
	}
	defer src.Close()

	dest := filepath.Join(dir, filepath.Base(doc.StoragePath))
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, src); err != nil {
		return "", fmt.Errorf("copy to archive: %w", err)
	}
	return dest, nil
}

func folderFor(rec *domain.StandardizedRecord) string {
	name := "unsorted"
	switch {
	case rec == nil:
	case rec.Invoice != nil && rec.Invoice.WellName != "":
		name = rec.Invoice.WellName
	case rec.Invoice != nil && rec.Invoice.VendorName != "":
		name = rec.Invoice.VendorName
	case rec.Statement != nil && rec.Statement.VendorName != "":
		name = rec.Statement.VendorName
	}
	return sanitizeFolder(name)
}

func sanitizeFolder(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unsorted"
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return '_'
		}
	}, name)
	return name
}
