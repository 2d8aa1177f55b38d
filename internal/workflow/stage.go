// Package workflow tracks the ten-stage purchase-order lifecycle used by
// every dapur: the canonical stage table, per-step status, the derived
// position/progress of a workflow instance and the view models the dashboard
// renders from it.
package workflow

// StageID identifies one stage of the purchase-order lifecycle.
type StageID string

const (
	StageDraft           StageID = "draft"
	StageApproval        StageID = "approval"
	StageSentToSupplier  StageID = "sent_to_supplier"
	StageSupplierAccept  StageID = "supplier_accept"
	StageProformaInvoice StageID = "proforma_invoice"
	StageShipment        StageID = "shipment"
	StageReceiving       StageID = "receiving"
	StageQC              StageID = "qc"
	StageFinalInvoice    StageID = "final_invoice"
	StagePayment         StageID = "payment"
)

// Stage is the static metadata of a stage.
type Stage struct {
	ID          StageID
	Name        string
	Description string
	Icon        string
}

// stages is the canonical order. Never reorder: positions are persisted.
var stages = [...]Stage{
	{StageDraft, "Draft PO", "Purchase order disusun oleh admin dapur", "file-text"},
	{StageApproval, "Persetujuan", "PO ditinjau dan disetujui kepala dapur", "check-circle"},
	{StageSentToSupplier, "Dikirim ke Supplier", "PO dikirim ke supplier", "send"},
	{StageSupplierAccept, "Diterima Supplier", "Supplier mengonfirmasi ketersediaan barang", "handshake"},
	{StageProformaInvoice, "Proforma Invoice", "Supplier menerbitkan proforma invoice", "receipt"},
	{StageShipment, "Pengiriman", "Barang dalam perjalanan ke dapur", "truck"},
	{StageReceiving, "Penerimaan Barang", "Barang diterima dan dicocokkan dengan PO", "package"},
	{StageQC, "Quality Control", "Pemeriksaan kualitas bahan oleh ahli gizi", "clipboard-check"},
	{StageFinalInvoice, "Invoice Final", "Invoice final diterima dari supplier", "file-invoice"},
	{StagePayment, "Pembayaran", "Pembayaran ke supplier diselesaikan", "credit-card"},
}

var stageIndex = func() map[StageID]int {
	m := make(map[StageID]int, len(stages))
	for i, s := range stages {
		m[s.ID] = i
	}
	return m
}()

// Stages returns the canonical ordered stage identifiers.
func Stages() []StageID {
	ids := make([]StageID, len(stages))
	for i, s := range stages {
		ids[i] = s.ID
	}
	return ids
}

// Lookup returns the metadata for id.
func Lookup(id StageID) (Stage, bool) {
	i, ok := stageIndex[id]
	if !ok {
		return Stage{}, false
	}
	return stages[i], true
}

// Position returns the canonical position of id, or -1 if id is unknown.
func Position(id StageID) int {
	if i, ok := stageIndex[id]; ok {
		return i
	}
	return -1
}
