package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/amsen20/leovnf/internal/model"
)

// FileStore keeps every record in one JSON object keyed by name, the layout
// of ns_vnf_config.json. Writes replace the file atomically.
type FileStore struct {
	Path string

	mutex sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (fs *FileStore) load() (map[string]*model.NetworkService, error) {
	records := make(map[string]*model.NetworkService)

	content, err := os.ReadFile(fs.Path)
	if errors.Is(err, os.ErrNotExist) {
		return records, nil
	}
	if err != nil {
		log.Err(err).Send()

		return nil, fmt.Errorf("could not read %s: %w", fs.Path, err)
	}
	if len(content) == 0 {
		return records, nil
	}

	if err := json.Unmarshal(content, &records); err != nil {
		return nil, fmt.Errorf("%w: %s is malformed: %v", model.ErrConfig, fs.Path, err)
	}

	return records, nil
}

func (fs *FileStore) Get(ctx context.Context, name string) (*model.NetworkService, error) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	records, err := fs.load()
	if err != nil {
		return nil, err
	}

	ns, ok := records[name]
	if !ok || ns == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoRecord, name)
	}

	return ns, nil
}

func (fs *FileStore) List(ctx context.Context) ([]string, error) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	records, err := fs.load()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

func (fs *FileStore) Put(ctx context.Context, ns *model.NetworkService) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	records, err := fs.load()
	if err != nil {
		return err
	}
	records[ns.Name] = ns

	content, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("could not encode %s: %w", ns.Name, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.Path), filepath.Base(fs.Path)+".*")
	if err != nil {
		log.Err(err).Send()

		return fmt.Errorf("could not write %s: %w", fs.Path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("could not write %s: %w", fs.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not write %s: %w", fs.Path, err)
	}
	if err := os.Rename(tmp.Name(), fs.Path); err != nil {
		log.Err(err).Send()

		return fmt.Errorf("could not replace %s: %w", fs.Path, err)
	}

	log.Debug().Msgf("stored network service %s in %s", ns.Name, fs.Path)

	return nil
}
