package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/lumiabot/core/logger"
	"github.com/m3rciful/lumiabot/core/telegram/state"
	"github.com/m3rciful/lumiabot/internal/gateway"
	"github.com/m3rciful/lumiabot/internal/service"
)

// Download starts the firmware download flow. Non-privileged users are
// checked against the quota first.
func (h *Handler) Download(ctx context.Context, in Incoming) error {
	if !h.access.IsPrivileged(ctx, in.UserID) {
		d, err := h.quota.Check(ctx, in.Profile)
		if err != nil {
			return fmt.Errorf("download: %w", err)
		}
		if !d.Allowed {
			return h.reply(ctx, in, quotaText(service.FormatWait(d.Wait)))
		}
	}

	catalog, err := h.repo.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if err := h.sessions.Enter(ctx, in.UserID, StateAwaitingProductType, nil); err != nil {
		return err
	}
	return h.gw.PresentChoices(ctx, in.ChatID, in.MessageID, msgSelectProductType, catalog.DownloadableTypes())
}

func (h *Handler) onProductType(ctx context.Context, _ state.Session, in Incoming) error {
	if in.Kind != KindText {
		return h.reply(ctx, in, msgInvalidProductType)
	}
	catalog, err := h.repo.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("product type: %w", err)
	}
	dev, ok := catalog.Device(in.Text)
	if !ok {
		return h.reply(ctx, in, msgInvalidProductType)
	}

	codes := dev.AvailableCodes()
	if len(codes) == 0 {
		h.exit(ctx, in.UserID)
		return h.replyDone(ctx, in, noFirmwareForTypeText(dev.ProductType), gateway.MarkdownV2)
	}
	if err := h.sessions.Enter(ctx, in.UserID, StateAwaitingProductCode, state.Payload{
		payloadProductType: dev.ProductType,
	}); err != nil {
		return err
	}
	return h.gw.PresentChoices(ctx, in.ChatID, in.MessageID, msgSelectProductCode, codes)
}

func (h *Handler) onProductCode(ctx context.Context, sess state.Session, in Incoming) error {
	if in.Kind != KindText {
		return h.reply(ctx, in, msgInvalidProductCode)
	}
	catalog, err := h.repo.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("product code: %w", err)
	}
	productType := sess.Value(payloadProductType)
	dev, ok := catalog.Device(productType)
	if !ok {
		// The catalog changed under the flow.
		h.exit(ctx, in.UserID)
		return h.replyDone(ctx, in, noFirmwareForTypeText(productType), gateway.MarkdownV2)
	}
	code, ok := dev.Code(in.Text)
	if !ok {
		return h.reply(ctx, in, msgInvalidProductCode)
	}

	h.exit(ctx, in.UserID)
	if !code.Available() {
		return h.replyDone(ctx, in, noFirmwareForCodeText(dev.ProductType, code.Code), gateway.MarkdownV2)
	}

	if err := h.gw.DeliverMedia(ctx, in.ChatID, in.MessageID, h.channels.Firmware, code.DownloadRefs); err != nil {
		logger.Error(ctx, "flow", "download.delivery_failed",
			slog.String("product_type", dev.ProductType),
			slog.String("product_code", code.Code),
			slog.String("err", err.Error()),
		)
		return h.replyDone(ctx, in, msgDeliveryFailed, gateway.Plain)
	}
	logger.Info(ctx, "flow", "download.delivered",
		slog.String("product_type", dev.ProductType),
		slog.String("product_code", code.Code),
		slog.Int("count", len(code.DownloadRefs)),
	)
	if h.access.IsPrivileged(ctx, in.UserID) {
		return nil
	}
	return h.quota.Consume(ctx, in.Profile)
}

// EmergencyFiles starts the emergency flash file flow.
func (h *Handler) EmergencyFiles(ctx context.Context, in Incoming) error {
	catalog, err := h.repo.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("emergency files: %w", err)
	}
	if err := h.sessions.Enter(ctx, in.UserID, StateAwaitingEmergencyType, nil); err != nil {
		return err
	}
	return h.gw.PresentChoices(ctx, in.ChatID, in.MessageID, msgSelectProductType, catalog.EmergencyTypes())
}

func (h *Handler) onEmergencyType(ctx context.Context, _ state.Session, in Incoming) error {
	if in.Kind != KindText {
		return h.reply(ctx, in, msgInvalidProductType)
	}
	catalog, err := h.repo.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("emergency type: %w", err)
	}
	dev, ok := catalog.Device(in.Text)
	if !ok {
		return h.reply(ctx, in, msgInvalidProductType)
	}

	h.exit(ctx, in.UserID)
	if dev.EmergencyRef == nil {
		return h.replyDone(ctx, in, noEmergencyText(dev.ProductType), gateway.MarkdownV2)
	}
	if err := h.gw.DeliverMedia(ctx, in.ChatID, in.MessageID, h.channels.Emergency, []int{*dev.EmergencyRef}); err != nil {
		logger.Error(ctx, "flow", "emergency.delivery_failed",
			slog.String("product_type", dev.ProductType),
			slog.String("err", err.Error()),
		)
		return h.replyDone(ctx, in, msgDeliveryFailed, gateway.Plain)
	}
	return nil
}

// Upload starts the firmware upload intake.
func (h *Handler) Upload(ctx context.Context, in Incoming) error {
	if err := h.sessions.Enter(ctx, in.UserID, StateAwaitingUploadFirmware, nil); err != nil {
		return err
	}
	return h.prompt(ctx, in, msgUploadPrompt)
}

func isZip(doc *Document) bool {
	return doc != nil &&
		doc.MIME == "application/zip" &&
		strings.HasSuffix(strings.ToLower(doc.FileName), ".zip")
}

// onUpload forwards every document for review and accepts only ZIP packages.
func (h *Handler) onUpload(ctx context.Context, _ state.Session, in Incoming) error {
	if in.Kind != KindDocument {
		return h.reply(ctx, in, msgUploadReminder)
	}
	if err := h.gw.Forward(ctx, h.channels.Upload, in.ChatID, in.MessageID); err != nil {
		logger.Error(ctx, "flow", "upload.forward_failed",
			slog.String("err", err.Error()),
		)
	}
	if !isZip(in.Document) {
		return h.reply(ctx, in, msgUploadNotZip)
	}
	h.exit(ctx, in.UserID)
	logger.Info(ctx, "flow", "upload.accepted")
	return h.reply(ctx, in, msgUploadThanks)
}

// NotifyAll starts the broadcast flow.
func (h *Handler) NotifyAll(ctx context.Context, in Incoming) error {
	if err := h.sessions.Enter(ctx, in.UserID, StateAwaitingBroadcastMessage, nil); err != nil {
		return err
	}
	return h.prompt(ctx, in, msgBroadcastPrompt)
}

// onBroadcast copies the message to every user and admin. Failures for one
// recipient are logged and skipped.
func (h *Handler) onBroadcast(ctx context.Context, _ state.Session, in Incoming) error {
	h.exit(ctx, in.UserID)
	if !in.Broadcastable() {
		return h.reply(ctx, in, msgBroadcastEmpty)
	}

	recipients, err := h.access.Recipients(ctx)
	if err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}
	progress, err := h.gw.Send(ctx, in.ChatID, msgBroadcastProgress, gateway.Plain)
	if err != nil {
		logger.Warn(ctx, "flow", "broadcast.progress_failed",
			slog.String("err", err.Error()),
		)
	}

	var delivered, failed int
	for _, id := range recipients {
		if err := h.gw.Copy(ctx, id, in.ChatID, in.MessageID); err != nil {
			failed++
			logger.Warn(ctx, "flow", "broadcast.recipient_failed",
				slog.Int64("target_id", id),
				slog.String("err", err.Error()),
			)
			continue
		}
		delivered++
	}

	if progress != 0 {
		if err := h.gw.Delete(ctx, in.ChatID, progress); err != nil {
			logger.Debug(ctx, "flow", "broadcast.progress_delete_failed",
				slog.String("err", err.Error()),
			)
		}
	}
	logger.Info(ctx, "flow", "broadcast.done",
		slog.Int("recipients", len(recipients)),
		slog.Int("delivered", delivered),
		slog.Int("failed", failed),
	)
	return h.reply(ctx, in, msgBroadcastDone)
}

// GetID starts the forwarded message id lookup.
func (h *Handler) GetID(ctx context.Context, in Incoming) error {
	if err := h.sessions.Enter(ctx, in.UserID, StateAwaitingForwardedMessage, nil); err != nil {
		return err
	}
	return h.prompt(ctx, in, msgLookupPrompt)
}

func (h *Handler) onForwardedMessage(ctx context.Context, _ state.Session, in Incoming) error {
	if in.ForwardedFrom == nil {
		if h.lookupPolicy == LookupExit {
			h.exit(ctx, in.UserID)
		}
		return h.reply(ctx, in, msgLookupFailed)
	}
	h.exit(ctx, in.UserID)
	return h.gw.Reply(ctx, gateway.Reply{
		ChatID: in.ChatID, ReplyTo: in.MessageID, Text: userIDText(in.ForwardedFrom.ID), Format: gateway.MarkdownV2,
	})
}

// Cancel ends the user's flow, if any.
func (h *Handler) Cancel(ctx context.Context, in Incoming) error {
	active, err := h.sessions.Cancel(ctx, in.UserID)
	if err != nil {
		return err
	}
	text := msgNothingToCancel
	if active {
		text = msgCancelled
	}
	return h.replyDone(ctx, in, text, gateway.Plain)
}
