package controller

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/orchestrator"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/utils"
)

const evidenceURLExpiry = 15 * time.Minute

// UploadEvidence stores a before/after capture for the caller's current job.
// Form fields: kind (before|after) and file.
func (ctrl *Controller) UploadEvidence(c *gin.Context) {
	ctx := c.Request.Context()
	s, ok := ctrl.session(c, "Evidence")
	if !ok {
		return
	}
	if s.Role() != entity.ActorProvider {
		ctrl.writeError(c, "Evidence", orchestrator.ErrWrongRole)
		return
	}
	job := s.Current()
	if job == nil {
		ctrl.writeError(c, "Evidence", orchestrator.ErrNoCurrentJob)
		return
	}

	kind := entity.EvidenceKind(c.PostForm("kind"))
	if !kind.Valid() {
		utils.JSON400(c, "kind must be before or after")
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		utils.JSON400(c, "file is required")
		return
	}
	if limit := ctrl.Config.EnvConfig.Minio.MaxUploadBytes; limit > 0 && header.Size > limit {
		utils.JSON400(c, fmt.Sprintf("file exceeds %d bytes", limit))
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") && !strings.HasPrefix(contentType, "video/") {
		utils.JSON400(c, "only images and videos are accepted")
		return
	}

	file, err := header.Open()
	if err != nil {
		ctrl.Logger.ErrorWithContextf(ctx, err, "[Evidence] Failed to open upload")
		utils.JSON400(c, "Unreadable file")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = ".bin"
	}
	objectKey := fmt.Sprintf("jobs/%s/%s/%s%s", job.ID, kind, uuid.NewString(), ext)

	if err := ctrl.Evidence.PutEvidence(ctx, objectKey, file, header.Size, contentType); err != nil {
		ctrl.Logger.ErrorWithContextf(ctx, err, "[Evidence] Failed to upload %s", objectKey)
		utils.JSON500(c, "Failed to store evidence")
		return
	}

	ev := &entity.Evidence{
		ID:          uuid.New(),
		JobID:       job.ID,
		Kind:        kind,
		ObjectKey:   objectKey,
		ContentType: contentType,
		SizeBytes:   header.Size,
		CapturedBy:  s.ActorID(),
	}
	actor, ok := ctrl.actor(c)
	if !ok {
		return
	}
	if err := ctrl.Jobs.AddEvidence(ctx, ev, actor); err != nil {
		if rmErr := ctrl.Evidence.RemoveEvidence(ctx, objectKey); rmErr != nil {
			ctrl.Logger.ErrorWithContextf(ctx, rmErr, "[Evidence] Failed to roll back %s", objectKey)
		}
		ctrl.writeError(c, "Evidence", err)
		return
	}

	response := gin.H{"evidence": ev}
	if u, err := ctrl.Evidence.PresignedEvidenceURL(ctx, objectKey, evidenceURLExpiry); err == nil {
		response["url"] = u.String()
	} else {
		ctrl.Logger.WarningWithContextf(ctx, "[Evidence] Failed to presign %s: %v", objectKey, err)
	}
	ctrl.Logger.InfoWithContextf(ctx, "[Evidence] Stored %s evidence for job %s", kind, job.ID)
	utils.JSON201(c, response)
}
