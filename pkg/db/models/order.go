package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/almutairi-dev/tawseel-backend/pkg/enums"
)

// Order is the unit of work moving through the fulfillment workflow.
// Attachment slots are write-once: a populated URL is never overwritten.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber int64             `gorm:"column:order_number;not null;uniqueIndex" json:"order_number"`
	Kind        enums.OrderKind   `gorm:"column:kind;type:text;not null" json:"kind"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending';index" json:"status"`

	BranchID uuid.UUID  `gorm:"column:branch_id;type:uuid;not null;index" json:"branch_id"`
	DriverID *uuid.UUID `gorm:"column:driver_id;type:uuid;index" json:"driver_id"`

	CustomerName  string `gorm:"column:customer_name;not null" json:"customer_name"`
	CustomerPhone string `gorm:"column:customer_phone;not null" json:"customer_phone"`
	City          string `gorm:"column:city" json:"city"`
	District      string `gorm:"column:district" json:"district"`
	Street        string `gorm:"column:street" json:"street"`

	TargetDate  *time.Time `gorm:"column:target_date;index" json:"target_date"`
	ConfirmedAt *time.Time `gorm:"column:confirmed_at" json:"confirmed_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at"`
	ArchivedAt  *time.Time `gorm:"column:archived_at" json:"archived_at"`

	FileURL         *string `gorm:"column:file_url" json:"file_url"`
	FileName        *string `gorm:"column:file_name" json:"file_name"`
	SignedFileURL   *string `gorm:"column:signed_file_url" json:"signed_file_url"`
	SignedFileName  *string `gorm:"column:signed_file_name" json:"signed_file_name"`
	BeforeImageURL  *string `gorm:"column:before_image_url" json:"before_image_url"`
	BeforeImageName *string `gorm:"column:before_image_name" json:"before_image_name"`
	AfterImageURL   *string `gorm:"column:after_image_url" json:"after_image_url"`
	AfterImageName  *string `gorm:"column:after_image_name" json:"after_image_name"`

	Notes *string `gorm:"column:notes" json:"notes"`

	Branch *Branch `gorm:"foreignKey:BranchID" json:"branch,omitempty"`
	Driver *Driver `gorm:"foreignKey:DriverID" json:"driver,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// AttachmentSlot names one of the write-once attachment fields on an Order.
type AttachmentSlot struct {
	Name string
	URL  string
	File string
}

// PopulatedAttachments returns every filled attachment slot on the order.
func (o *Order) PopulatedAttachments() []AttachmentSlot {
	if o == nil {
		return nil
	}
	slots := []AttachmentSlot{}
	add := func(name string, url, file *string) {
		if url == nil || *url == "" {
			return
		}
		slot := AttachmentSlot{Name: name, URL: *url}
		if file != nil {
			slot.File = *file
		}
		slots = append(slots, slot)
	}
	add("file", o.FileURL, o.FileName)
	add("signed_file", o.SignedFileURL, o.SignedFileName)
	add("before_image", o.BeforeImageURL, o.BeforeImageName)
	add("after_image", o.AfterImageURL, o.AfterImageName)
	return slots
}
