package models

import (
	"time"
)

type AppointmentStatus string

const (
	AppointmentNew        AppointmentStatus = "Mới"
	AppointmentHesitant   AppointmentStatus = "Lưỡng lự"
	AppointmentInterested AppointmentStatus = "Quan tâm"
	AppointmentClosed     AppointmentStatus = "Chốt"
	AppointmentCancelled  AppointmentStatus = "Hủy"
)

type ConsultationType string

const (
	ConsultationNew      ConsultationType = "Tư vấn mới"
	ConsultationReturn   ConsultationType = "Tư vấn cũ"
	ConsultationDesign   ConsultationType = "Duyệt Design"
	ConsultationHandover ConsultationType = "Bàn giao"
	ConsultationUpgrade  ConsultationType = "Nâng cấp"
	ConsultationRestore  ConsultationType = "Khôi phục Web"
	ConsultationSupport  ConsultationType = "Hỗ trợ khách hàng"
)

type SupportType string

const (
	SupportSolo      SupportType = "Solo"
	SupportCombined  SupportType = "Kết hợp"
	SupportAssisting SupportType = "Hỗ trợ"
	SupportRequested SupportType = "Nhờ hỗ trợ"
)

type RevenueType string

const (
	RevenueNewContract    RevenueType = "Ký mới"
	RevenueHosting        RevenueType = "Hosting"
	RevenueHandover       RevenueType = "Bàn giao"
	RevenueWebUpgrade     RevenueType = "Nâng cấp Web"
	RevenueHostingUpgrade RevenueType = "Nâng cấp Hosting"
)

type Appointment struct {
	ID            string            `json:"id" gorm:"primaryKey"`
	UserID        string            `json:"userId" gorm:"index;not null"`
	CompanyName   string            `json:"companyName,omitempty"`
	CustomerName  string            `json:"customerName"`
	Phone         string            `json:"phone" gorm:"index"`
	Email         string            `json:"email,omitempty"`
	Source        string            `json:"source,omitempty"`
	Status        AppointmentStatus `json:"status"`
	Date          string            `json:"date" gorm:"index"`
	Location      string            `json:"location,omitempty"`
	AddressDetail string            `json:"addressDetail,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

func (Appointment) TableName() string {
	return "appointments"
}

type Consultation struct {
	ID                string           `json:"id" gorm:"primaryKey"`
	UserID            string           `json:"userId" gorm:"index;not null"`
	AppointmentID     string           `json:"appointmentId,omitempty"`
	CustomerName      string           `json:"customerName"`
	Phone             string           `json:"phone" gorm:"index"`
	CompanyName       string           `json:"companyName,omitempty"`
	Source            string           `json:"source,omitempty"`
	AddressDetail     string           `json:"addressDetail,omitempty"`
	Type              ConsultationType `json:"type"`
	SupportType       SupportType      `json:"supportType"`
	SupportPersonName string           `json:"supportPersonName,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	Date              string           `json:"date" gorm:"index"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

func (Consultation) TableName() string {
	return "consultations"
}

type Revenue struct {
	ID                string      `json:"id" gorm:"primaryKey"`
	UserID            string      `json:"userId" gorm:"index;not null"`
	Type              RevenueType `json:"type"`
	ContractCode      string      `json:"contractCode" gorm:"index"`
	ContractValue     float64     `json:"contractValue"`
	AmountCollected   float64     `json:"amountCollected"`
	Date              string      `json:"date" gorm:"index"`
	IsApproved        bool        `json:"isApproved"`
	RelatedContractID string      `json:"relatedContractId,omitempty"`
	CustomerName      string      `json:"customerName,omitempty"`
	Phone             string      `json:"phone,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

func (Revenue) TableName() string {
	return "revenues"
}

// ProjectStatusDefault is shown for projects that never had a status set.
const ProjectStatusDefault = "Đang triển khai"

type ProjectProfile struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	UserID        string    `json:"userId" gorm:"index"`
	ContractCode  string    `json:"contractCode" gorm:"uniqueIndex;not null"`
	CustomerName  string    `json:"customerName"`
	Phone         string    `json:"phone" gorm:"index"`
	CompanyName   string    `json:"companyName,omitempty"`
	Industry      string    `json:"industry,omitempty"`
	Region        string    `json:"region,omitempty"`
	DesignLink    string    `json:"designLink,omitempty"`
	WebLink       string    `json:"webLink,omitempty"`
	WebPassword   string    `json:"webPassword,omitempty"`
	HostingSize   string    `json:"hostingSize,omitempty"`
	ZaloGroup     string    `json:"zaloGroup,omitempty"`
	JointSigner   string    `json:"jointSigner,omitempty"`
	Status        string    `json:"status,omitempty"`
	SignDate      string    `json:"signDate,omitempty"`
	HandoverDate  string    `json:"handoverDate,omitempty"`
	ContractValue float64   `json:"contractValue"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (ProjectProfile) TableName() string {
	return "projects"
}

// MonthlyTarget overrides the default KPI targets for one user and month.
type MonthlyTarget struct {
	ID                 string    `json:"id" gorm:"primaryKey"`
	UserID             string    `json:"userId" gorm:"index;not null"`
	MonthStr           string    `json:"monthStr"`
	TargetAppointment  int       `json:"targetAppointment"`
	TargetConsultation int       `json:"targetConsultation"`
	TargetRevenue      float64   `json:"targetRevenue"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (MonthlyTarget) TableName() string {
	return "targets"
}
