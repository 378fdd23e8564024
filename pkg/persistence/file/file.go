// Package file provides a file-based data store implementation used by tests and local development.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bankops/caseflow/pkg/persistence"
)

// DataStore implements persistence.DataStore on top of a directory of JSON
// files, one file per row. A single mutex serializes all writes; this store is
// not meant for multi-process use.
type DataStore struct {
	root string
	mu   sync.Mutex

	cases         *CaseRepository
	tasks         *TaskRepository
	instances     *InstanceRepository
	notifications *NotificationRepository
	users         *UserRepository
	customers     *CustomerRepository
}

func NewDataStore(root string) *DataStore {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	ds := &DataStore{root: cleanRoot}
	ds.cases = &CaseRepository{store: ds}
	ds.tasks = &TaskRepository{store: ds}
	ds.instances = &InstanceRepository{store: ds}
	ds.notifications = &NotificationRepository{store: ds}
	ds.users = &UserRepository{store: ds}
	ds.customers = &CustomerRepository{store: ds}

	return ds
}

func (ds *DataStore) Cases() persistence.CaseRepository                 { return ds.cases }
func (ds *DataStore) Tasks() persistence.TaskRepository                 { return ds.tasks }
func (ds *DataStore) Instances() persistence.InstanceRepository         { return ds.instances }
func (ds *DataStore) Notifications() persistence.NotificationRepository { return ds.notifications }
func (ds *DataStore) Users() persistence.UserRepository                 { return ds.users }
func (ds *DataStore) Customers() persistence.CustomerRepository         { return ds.customers }

func (ds *DataStore) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(ds.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (ds *DataStore) Close(_ context.Context) error {
	return nil
}

func (ds *DataStore) write(kind, id string, v any) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	dir := filepath.Join(ds.root, kind)

	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", kind, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", kind, id, err)
	}

	err = os.WriteFile(filepath.Join(dir, id+".json"), data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write %s %s: %w", kind, id, err)
	}

	return nil
}

// read unmarshals one row; it reports os.ErrNotExist untouched so callers can
// translate it to their repository's not-found error.
func (ds *DataStore) read(kind, id string, v any) error {
	data, err := os.ReadFile(filepath.Join(ds.root, kind, id+".json"))
	if err != nil {
		return err
	}

	err = json.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s %s: %w", kind, id, err)
	}

	return nil
}

// readAll loads every row of a kind via the decode callback.
func (ds *DataStore) readAll(kind string, decode func(data []byte) error) error {
	dir := filepath.Join(ds.root, kind)

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to list %s directory: %w", kind, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read %s file %s: %w", kind, entry.Name(), err)
		}

		err = decode(data)
		if err != nil {
			return err
		}
	}

	return nil
}
