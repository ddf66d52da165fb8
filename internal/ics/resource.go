package ics

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"

	appLog "termcal/internal/log"
)

// Document is one calendar file produced by resolving a resource.
type Document struct {
	Name string
	Body []byte
}

// Resolver turns a configured resource into documents: an http(s) URL is
// fetched, a path ending in .ics is read, anything else is walked as a
// directory for .ics files.
type Resolver struct {
	fetcher *Fetcher
	logger  *appLog.Logger
}

func NewResolver(fetcher *Fetcher, logger *appLog.Logger) *Resolver {
	return &Resolver{fetcher: fetcher, logger: logger.With("component", "ics")}
}

// Resolve returns the sanitized documents behind resource. Unreadable files
// inside a directory are logged and skipped.
func (r *Resolver) Resolve(ctx context.Context, resource string) ([]Document, error) {
	resource = strings.TrimSpace(resource)
	if strings.HasPrefix(resource, "http://") || strings.HasPrefix(resource, "https://") {
		if r.fetcher == nil {
			return nil, fmt.Errorf("ics: no fetcher for %s", redactURL(resource))
		}
		res, err := r.fetcher.Fetch(ctx, resource)
		if err != nil {
			return nil, err
		}
		return []Document{{Name: redactURL(resource), Body: Sanitize(res.Body)}}, nil
	}

	path, err := homedir.Expand(resource)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".ics") {
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("ics: read %s: %w", path, err)
		}
		return []Document{{Name: path, Body: Sanitize(body)}}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			r.logger.Error("ics walk failed", err, "path", p)
			if d != nil && d.IsDir() && p != path {
				return fs.SkipDir
			}
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".ics") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ics: walk %s: %w", path, err)
	}
	sort.Strings(files)

	docs := make([]Document, 0, len(files))
	for _, f := range files {
		body, err := os.ReadFile(f)
		if err != nil {
			r.logger.Error("ics file read failed", err, "path", f)
			continue
		}
		docs = append(docs, Document{Name: f, Body: Sanitize(body)})
	}
	return docs, nil
}
