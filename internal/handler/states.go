package handler

import "github.com/m3rciful/lumiabot/core/telegram/state"

// Flow states.
const (
	StateAwaitingProductType      state.State = "awaiting_product_type"
	StateAwaitingProductCode      state.State = "awaiting_product_code"
	StateAwaitingEmergencyType    state.State = "awaiting_emergency_product_type"
	StateAwaitingUploadFirmware   state.State = "awaiting_upload_firmware"
	StateAwaitingBroadcastMessage state.State = "awaiting_broadcast_message"
	StateAwaitingForwardedMessage state.State = "awaiting_forwarded_message_for_id_lookup"
)

// payloadProductType carries the chosen product type into the code step.
const payloadProductType = "product_type"
