// Package ingest pairs batch input files into extraction requests:
// <name>.txt raw OCR text, with optional <name>.entities.json NER
// spans and <name>.meta.json external-parser metadata alongside.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/epfo-tools/case-engine/internal/entity"
	"github.com/epfo-tools/case-engine/internal/normalize"
	"github.com/epfo-tools/case-engine/internal/pipeline"
)

type FileResult struct {
	Path       string
	DocumentID string
	Err        string
}

type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
}

// metaFile is the on-disk shape of <name>.meta.json.
type metaFile struct {
	CaseID    string `json:"case_id"`
	OrderDate string `json:"order_date"`
}

// ScanDirectory walks root and builds one process request per .txt
// file. Sidecar files that fail to parse fail that document only; the
// walk continues.
func ScanDirectory(ctx context.Context, root string) ([]pipeline.ProcessRequest, []FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, DirStats{}, errors.New("root path is required")
	}

	var (
		requests []pipeline.ProcessRequest
		results  []FileResult
		stats    DirStats
	)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil // continue walking
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".txt") {
			return nil
		}
		stats.Matched++

		req, err := loadDocument(path)
		if err != nil {
			results = append(results, FileResult{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		stats.Succeeded++
		requests = append(requests, req)
		results = append(results, FileResult{Path: path, DocumentID: req.DocumentID})
		return nil
	})
	if err != nil {
		return nil, results, stats, err
	}
	return requests, results, stats, nil
}

func loadDocument(txtPath string) (pipeline.ProcessRequest, error) {
	raw, err := os.ReadFile(txtPath)
	if err != nil {
		return pipeline.ProcessRequest{}, err
	}
	base := strings.TrimSuffix(txtPath, filepath.Ext(txtPath))
	req := pipeline.ProcessRequest{
		DocumentID: filepath.Base(base),
		RawText:    string(raw),
	}

	if spans, err := readEntities(base + ".entities.json"); err != nil {
		return pipeline.ProcessRequest{}, err
	} else {
		req.Entities = spans
	}

	meta, ok, err := readMeta(base + ".meta.json")
	if err != nil {
		return pipeline.ProcessRequest{}, err
	}
	if ok {
		req.Meta = &meta
	}
	return req, nil
}

func readEntities(path string) ([]entity.EntitySpan, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var spans []entity.EntitySpan
	if err := json.Unmarshal(data, &spans); err != nil {
		return nil, err
	}
	return spans, nil
}

func readMeta(path string) (entity.Metadata, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return entity.Metadata{}, false, nil
	}
	if err != nil {
		return entity.Metadata{}, false, err
	}
	var mf metaFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return entity.Metadata{}, false, err
	}
	meta := entity.Metadata{CaseID: mf.CaseID}
	if mf.OrderDate != "" {
		if t, ok := normalize.ParseDate(mf.OrderDate); ok {
			meta.OrderDate = &t
		} else if t, err := time.Parse("2006-01-02", mf.OrderDate); err == nil {
			meta.OrderDate = &t
		}
	}
	return meta, true, nil
}
