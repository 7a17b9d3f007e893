package api

import (
	"net/http"

	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// Backups archives the host's data directory.
type Backups interface {
	RunBackupNow() (string, error)
	ListBackups() ([]string, error)
}

type backupHandlers struct {
	b Backups
}

func (h backupHandlers) list(w http.ResponseWriter, r *http.Request) {
	files, err := h.b.ListBackups()
	if err != nil {
		writeError(w, models.ErrInternal(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"backups": files})
}

func (h backupHandlers) create(w http.ResponseWriter, r *http.Request) {
	name, err := h.b.RunBackupNow()
	if err != nil {
		writeError(w, models.ErrInternal(err.Error()))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"file": name})
}
