package models

import (
	"strconv"
	"strings"
)

// Merchant describes one origin utility. The electricity, water and
// traffic-challan flows are the same state machine; only the labels,
// merchant id and data file differ, so the flow is parameterized by
// this descriptor instead of being duplicated per utility.
type Merchant struct {
	Code         string `yaml:"code" json:"code"`
	Name         string `yaml:"name" json:"name"`
	FullName     string `yaml:"full_name" json:"fullName"`
	IDField      string `yaml:"id_field" json:"idField"`
	IDLength     int    `yaml:"id_length" json:"idLength"`
	SectionLabel string `yaml:"section_label" json:"sectionLabel"`
	BillLabel    string `yaml:"bill_label" json:"billLabel"`
	VPA          string `yaml:"vpa" json:"vpa"`
	QRTemplate   string `yaml:"qr_template" json:"qrTemplate"`
	DataFile     string `yaml:"data_file" json:"-"`
}

// ValidIdentifier reports whether the raw identifier satisfies the
// merchant's format rule. A zero IDLength means any non-empty value.
func (m Merchant) ValidIdentifier(id string) bool {
	if id == "" {
		return false
	}
	if m.IDLength == 0 {
		return true
	}
	if len(id) != m.IDLength {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// QRLabel renders the merchant's UPI QR template for an amount, e.g.
// "upi://pay?pa=kseb@upi&pn=KSEB&am=1240.5".
func (m Merchant) QRLabel(amount float64) string {
	return strings.ReplaceAll(m.QRTemplate, "{amount}",
		strconv.FormatFloat(amount, 'f', -1, 64))
}
