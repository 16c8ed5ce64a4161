package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const OrderStatusConfirmed = "confirmed"

// OrderItem is one (product, color) line of a confirmed order.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Name      string             `bson:"name" json:"name"`
	Color     string             `bson:"color" json:"color"`
	UnitPrice float64            `bson:"unit_price" json:"unit_price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	LineTotal float64            `bson:"line_total" json:"line_total"`
}

// OrderCustomer captures the contact details entered at checkout.
type OrderCustomer struct {
	Name       string `bson:"name" json:"name"`
	Email      string `bson:"email" json:"email"`
	Phone      string `bson:"phone" json:"phone"`
	Address    string `bson:"address" json:"address"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postal_code" json:"postal_code"`
	Note       string `bson:"note,omitempty" json:"note,omitempty"`
}

// Order defines the persisted order document.
type Order struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Number        string              `bson:"number" json:"number"`
	UserID        *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Items         []OrderItem         `bson:"items" json:"items"`
	Total         float64             `bson:"total" json:"total"`
	Customer      OrderCustomer       `bson:"customer" json:"customer"`
	PaymentMethod string              `bson:"payment_method" json:"payment_method"`
	Status        string              `bson:"status" json:"status"`
	EmailSent     bool                `bson:"email_sent" json:"email_sent"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
}
