package server

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

// File-explorer API. Paths are absolute, cleaned, and confined to the
// configured root; an empty path means the root itself.

type fileEntry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
	Kind  string `json:"kind"` // "dir" or "file"
}

// resolveFilesPath validates a caller-supplied path against the explorer
// root. Empty input resolves to the root.
func (r *Router) resolveFilesPath(raw string) (string, bool) {
	root := filepath.Clean(r.opts.FilesRoot)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return root, true
	}
	if !filepath.IsAbs(raw) {
		return "", false
	}
	clean := filepath.Clean(raw)
	if root == string(filepath.Separator) {
		return clean, true
	}
	if clean != root && !strings.HasPrefix(clean, root+string(filepath.Separator)) {
		return "", false
	}
	return clean, true
}

func logFS(action, path, status string, detail ...any) {
	args := append([]any{"action", action, "path", path, "status", status}, detail...)
	if status == "error" {
		slog.Warn("fs", args...)
		return
	}
	slog.Debug("fs", args...)
}

func (r *Router) handleFilesList(c *gin.Context) {
	dir, ok := r.resolveFilesPath(c.Query("path"))
	if !ok {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "path must be absolute and within the files root"})
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		logFS("list", dir, "error", "err", err)
		writeFSErr(c, err)
		return
	}
	out := make([]fileEntry, 0, len(entries))
	for _, e := range entries {
		kind := "file"
		if e.IsDir() {
			kind = "dir"
		}
		out = append(out, fileEntry{
			Name:  e.Name(),
			Path:  filepath.Join(dir, e.Name()),
			IsDir: e.IsDir(),
			Kind:  kind,
		})
	}
	// Folders first, then name.
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDir != out[j].IsDir {
			return out[i].IsDir
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	logFS("list", dir, "success", "count", len(out))
	writeJSON(c, http.StatusOK, out)
}

func (r *Router) handleFileRead(c *gin.Context) {
	path, ok := r.resolveFilesPath(c.Query("path"))
	if !ok {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "path must be absolute and within the files root"})
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		logFS("read", path, "error", "err", err)
		writeFSErr(c, err)
		return
	}
	if info.IsDir() {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "not a file"})
		return
	}
	content, err := os.ReadFile(path)
	if err != nil {
		logFS("read", path, "error", "err", err)
		writeFSErr(c, err)
		return
	}
	logFS("read", path, "success")
	writeJSON(c, http.StatusOK, gin.H{"content": string(content)})
}

func (r *Router) handleFileWrite(c *gin.Context) {
	path, ok := r.resolveFilesPath(c.Query("path"))
	if !ok {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "path must be absolute and within the files root"})
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		logFS("write", path, "error", "err", err)
		writeFSErr(c, err)
		return
	}
	if err := os.WriteFile(path, []byte(req.Content), 0o640); err != nil {
		logFS("write", path, "error", "err", err)
		writeFSErr(c, err)
		return
	}
	logFS("write", path, "success")
	writeJSON(c, http.StatusOK, gin.H{"status": "saved"})
}

func (r *Router) handleMkdir(c *gin.Context) {
	path, ok := r.resolveFilesPath(c.Query("path"))
	if !ok {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "path must be absolute and within the files root"})
		return
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		logFS("mkdir", path, "error", "err", err)
		writeFSErr(c, err)
		return
	}
	logFS("mkdir", path, "success")
	writeJSON(c, http.StatusOK, gin.H{"status": "created"})
}

func (r *Router) handleFileDelete(c *gin.Context) {
	path, ok := r.resolveFilesPath(c.Query("path"))
	if !ok {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "path must be absolute and within the files root"})
		return
	}
	// os.Remove deletes files and empty directories only; the API refuses
	// recursive deletes.
	if err := os.Remove(path); err != nil {
		logFS("delete", path, "error", "err", err)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			writeJSON(c, http.StatusNotFound, errorResp{Error: "not found"})
		case errors.Is(err, fs.ErrPermission):
			writeJSON(c, http.StatusForbidden, errorResp{Error: "permission denied"})
		default:
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "directory not empty (or in use)"})
		}
		return
	}
	logFS("delete", path, "success")
	writeJSON(c, http.StatusOK, gin.H{"status": "deleted"})
}

func writeFSErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		writeJSON(c, http.StatusNotFound, errorResp{Error: "not found"})
	case errors.Is(err, fs.ErrPermission):
		writeJSON(c, http.StatusForbidden, errorResp{Error: "permission denied"})
	default:
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
	}
}
