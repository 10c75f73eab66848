// internal/app/features/projects/files.go
package projects

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	projectstore "github.com/dalemusser/softmanager/internal/app/store/projects"
	"github.com/dalemusser/softmanager/internal/app/system/archive"
	"github.com/dalemusser/softmanager/internal/app/system/filerepo"
	"github.com/dalemusser/softmanager/internal/app/system/limits"
	"github.com/dalemusser/softmanager/internal/app/system/timeouts"
	"github.com/dalemusser/softmanager/internal/app/system/viewdata"
	"github.com/dalemusser/softmanager/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	physicalDeleteNotice = "File removed from the list, but it could not be deleted from disk."
	notEditableNotice    = "This file is binary or too large to edit as text."
	emptyFolderNotice    = "This project's folder is empty or does not exist."
)

func attachment(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /projetos/upload                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleUpload stores every "arquivo" part in the project's folder. The
// membership guard has already parsed the multipart form.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(limits.MultipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.ErrLog.LogBadRequest(w, r, "upload too large", err, "The upload exceeds the size limit.", "/projetos")
			return
		}
		h.ErrLog.LogBadRequest(w, r, "parse multipart failed", err, "Invalid upload.", "/projetos")
		return
	}
	defer r.MultipartForm.RemoveAll()

	pidHex := strings.TrimSpace(r.FormValue("projeto_id"))
	pid, err := primitive.ObjectIDFromHex(pidHex)
	if err != nil {
		http.Redirect(w, r, "/projetos", http.StatusSeeOther)
		return
	}
	back := viewURL(pidHex)

	parts := r.MultipartForm.File["arquivo"]
	if len(parts) == 0 {
		http.Redirect(w, r, withError(back, "Choose at least one file."), http.StatusSeeOther)
		return
	}

	uploads, closeAll, err := openParts(parts)
	defer closeAll()
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "open upload part failed", err, "Invalid upload.", back)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	recs, err := h.Repo.Store(ctx, caller(r), pid, uploads)
	switch {
	case errors.Is(err, filerepo.ErrProjectNotFound):
		http.Redirect(w, r, "/projetos", http.StatusSeeOther)
		return
	case errors.Is(err, filerepo.ErrEmptyName):
		http.Redirect(w, r, withError(back, "Every file needs a name."), http.StatusSeeOther)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "store upload failed", err, "Unable to save the upload.", back)
		return
	}

	h.Log.Info("files uploaded",
		zap.String("project_id", pidHex),
		zap.Int("count", len(recs)))
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func openParts(parts []*multipart.FileHeader) ([]filerepo.Upload, func(), error) {
	var opened []io.Closer
	closeAll := func() {
		for _, c := range opened {
			c.Close()
		}
	}
	uploads := make([]filerepo.Upload, 0, len(parts))
	for _, fh := range parts {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, err
		}
		opened = append(opened, f)
		uploads = append(uploads, filerepo.Upload{Name: fh.Filename, Body: f})
	}
	return uploads, closeAll, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /projetos/arquivo/download/{id}                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeDownload streams one file under its original name. Access is checked
// against the file's own project.
func (h *Handler) ServeDownload(w http.ResponseWriter, r *http.Request) {
	fid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	dl, err := h.Repo.Open(ctx, caller(r), fid)
	switch {
	case errors.Is(err, filerepo.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, filerepo.ErrForbidden):
		forbidden(w, r, "You are not part of this project's team.")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "open file failed", err, "Unable to download the file.", "/projetos")
		return
	}
	defer dl.Body.Close()

	w.Header().Set("Content-Disposition", attachment(dl.Record.OriginalName))
	if rs, ok := dl.Body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, dl.Record.OriginalName, dl.ModTime, rs)
		return
	}
	w.Header().Set("Content-Type", storage.DetectContentType(dl.Record.OriginalName, nil))
	w.Header().Set("Content-Length", strconv.FormatInt(dl.Size, 10))
	_, _ = io.Copy(w, dl.Body)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /projetos/download-all/{id}                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeDownloadAll zips the project's folder in memory and sends it.
func (h *Handler) ServeDownloadAll(w http.ResponseWriter, r *http.Request) {
	idHex := chi.URLParam(r, "id")
	oid, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		http.Redirect(w, r, "/projetos", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	p, err := h.Projects.GetByID(ctx, oid)
	if err != nil {
		if errors.Is(err, projectstore.ErrNotFound) {
			http.Redirect(w, r, "/projetos", http.StatusSeeOther)
			return
		}
		h.ErrLog.LogServerError(w, r, "load project failed", err, "Unable to build the archive.", viewURL(idHex))
		return
	}

	arc, err := archive.BuildProjectArchive(ctx, h.Storage, p.Name)
	switch {
	case errors.Is(err, archive.ErrFolderMissing), errors.Is(err, archive.ErrFolderEmpty):
		http.Redirect(w, r, withError(viewURL(idHex), emptyFolderNotice), http.StatusSeeOther)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "build archive failed", err, "Unable to build the archive.", viewURL(idHex))
		return
	}

	h.Log.Info("project archive built",
		zap.String("project_id", idHex),
		zap.Int("files", arc.Files),
		zap.Int("bytes", len(arc.Data)))

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", attachment(arc.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(arc.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(arc.Data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /projetos/arquivo/delete/{id}                                           |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleFileDelete removes one file. When only the record could be removed
// the project page shows a notice.
func (h *Handler) HandleFileDelete(w http.ResponseWriter, r *http.Request) {
	fid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Redirect(w, r, "/projetos", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	out, err := h.Repo.Delete(ctx, caller(r), fid)
	switch {
	case errors.Is(err, filerepo.ErrNotFound):
		http.Redirect(w, r, "/projetos", http.StatusSeeOther)
		return
	case errors.Is(err, filerepo.ErrForbidden):
		forbidden(w, r, "You are not part of this project's team.")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "delete file failed", err, "Unable to delete the file.", "/projetos")
		return
	}

	back := viewURL(out.Record.ProjectID.Hex())
	if out.PhysicalErr != nil {
		back += "?aviso=" + url.QueryEscape(physicalDeleteNotice)
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /projetos/arquivo/edit/{id}, POST /projetos/arquivo/save                |
*─────────────────────────────────────────────────────────────────────────────*/

type editData struct {
	viewdata.BaseVM
	File      models.FileRecord
	FileID    string
	ProjectID string
	Content   string
}

// ServeEdit shows a text file in the editor.
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	fid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Redirect(w, r, "/projetos", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rec, content, err := h.Repo.ReadForEdit(ctx, caller(r), fid)
	switch {
	case errors.Is(err, filerepo.ErrNotFound):
		http.Redirect(w, r, "/projetos", http.StatusSeeOther)
		return
	case errors.Is(err, filerepo.ErrForbidden):
		forbidden(w, r, "You are not part of this project's team.")
		return
	case errors.Is(err, filerepo.ErrNotEditable):
		http.Redirect(w, r, withError(viewURL(rec.ProjectID.Hex()), notEditableNotice), http.StatusSeeOther)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "read file failed", err, "Unable to open the file.", "/projetos")
		return
	}

	pidHex := rec.ProjectID.Hex()
	templates.Render(w, r, "file_edit", editData{
		BaseVM:    viewdata.NewBaseVM(r, "Edit "+rec.OriginalName, viewURL(pidHex)),
		File:      rec,
		FileID:    rec.ID.Hex(),
		ProjectID: pidHex,
		Content:   content,
	})
}

// HandleSave overwrites a file with the editor's content (fields id, conteudo).
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxEditFormSize)
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "The content is too large or malformed.", "/projetos")
		return
	}

	fid, err := primitive.ObjectIDFromHex(strings.TrimSpace(r.FormValue("id")))
	if err != nil {
		http.Redirect(w, r, "/projetos", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rec, err := h.Repo.Save(ctx, caller(r), fid, r.FormValue("conteudo"))
	switch {
	case errors.Is(err, filerepo.ErrNotFound):
		http.Redirect(w, r, "/projetos", http.StatusSeeOther)
		return
	case errors.Is(err, filerepo.ErrForbidden):
		forbidden(w, r, "You are not part of this project's team.")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "save file failed", err, "Unable to save the file.", "/projetos")
		return
	}

	http.Redirect(w, r, viewURL(rec.ProjectID.Hex()), http.StatusSeeOther)
}
