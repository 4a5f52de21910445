package models

import "encoding/json"

// Application-level response codes carried in every EasyCars envelope.
const (
	RespCodeSuccess    = 0
	RespCodeAuth       = 1
	RespCodeTemporary  = 5
	RespCodeValidation = 7
	RespCodeFatal      = 9
)

// RemoteStatus is the closed classification of an EasyCars response.
type RemoteStatus int

const (
	RemoteSuccess RemoteStatus = iota
	RemoteAuth
	RemoteTemporary
	RemoteValidation
	RemoteFatal
	RemoteUnknown
)

// ClassifyResponseCode maps an application response code onto the
// closed RemoteStatus taxonomy. This is the single classification
// point; callers branch on the result, never on raw codes.
func ClassifyResponseCode(code int) RemoteStatus {
	switch code {
	case RespCodeSuccess:
		return RemoteSuccess
	case RespCodeAuth:
		return RemoteAuth
	case RespCodeTemporary:
		return RemoteTemporary
	case RespCodeValidation:
		return RemoteValidation
	case RespCodeFatal:
		return RemoteFatal
	default:
		return RemoteUnknown
	}
}

// Envelope is implemented by every EasyCars response body.
type Envelope interface {
	// OuterCode returns the transport-level ResponseCode.
	OuterCode() int
	// InnerCode returns the operation-level Code, or 0 for endpoints
	// that do not carry one. Lead endpoints succeed only when both
	// codes are zero.
	InnerCode() int
	// Message returns the remote status message.
	Message() string
}

// TokenRequest is the body of POST /RequestToken.
type TokenRequest struct {
	AccountID     string `json:"accountId"`
	AccountSecret string `json:"accountSecret"`
}

// TokenResponse is the envelope returned by /RequestToken.
type TokenResponse struct {
	ResponseCode    int    `json:"ResponseCode"`
	Token           string `json:"Token,omitempty"`
	ExpiresAt       string `json:"ExpiresAt,omitempty"`
	ResponseMessage string `json:"ResponseMessage"`
}

func (r *TokenResponse) OuterCode() int  { return r.ResponseCode }
func (r *TokenResponse) InnerCode() int  { return 0 }
func (r *TokenResponse) Message() string { return r.ResponseMessage }

// RemoteStock is one advertisement stock item as EasyCars returns it.
type RemoteStock struct {
	StockNumber  string   `json:"StockNumber"`
	YardCode     string   `json:"YardCode,omitempty"`
	Make         string   `json:"Make"`
	Model        string   `json:"Model"`
	Variant      string   `json:"Variant,omitempty"`
	Year         int      `json:"Year"`
	Price        float64  `json:"Price"`
	Odometer     int      `json:"Odometer"`
	Colour       string   `json:"Colour,omitempty"`
	VIN          string   `json:"VIN,omitempty"`
	Registration string   `json:"Registration,omitempty"`
	Transmission string   `json:"Transmission,omitempty"`
	FuelType     string   `json:"FuelType,omitempty"`
	BodyType     string   `json:"BodyType,omitempty"`
	Description  string   `json:"Description,omitempty"`
	ImageURLs    []string `json:"ImageURLs,omitempty"`
}

// StockListResponse is the envelope of GET /Stock/GetAdvertisementStocks.
type StockListResponse struct {
	ResponseCode    int           `json:"ResponseCode"`
	Stocks          []RemoteStock `json:"Stocks"`
	ResponseMessage string        `json:"ResponseMessage"`
}

func (r *StockListResponse) OuterCode() int  { return r.ResponseCode }
func (r *StockListResponse) InnerCode() int  { return 0 }
func (r *StockListResponse) Message() string { return r.ResponseMessage }

// LeadPayload is the outbound lead body for create and update calls.
type LeadPayload struct {
	FirstName   string `json:"FirstName"`
	LastName    string `json:"LastName"`
	Email       string `json:"Email,omitempty"`
	Phone       string `json:"Phone,omitempty"`
	Comments    string `json:"Comments,omitempty"`
	StockNumber string `json:"StockNumber,omitempty"`
	Status      int    `json:"Status,omitempty"`
}

// LeadStatusPayload carries a status-only update.
type LeadStatusPayload struct {
	LeadNumber string `json:"LeadNumber"`
	Status     int    `json:"Status"`
}

// LeadResponse is the envelope of the lead write endpoints.
type LeadResponse struct {
	ResponseCode    int    `json:"ResponseCode"`
	Code            int    `json:"Code"`
	ResponseMessage string `json:"ResponseMessage"`
	LeadNumber      string `json:"LeadNumber,omitempty"`
}

func (r *LeadResponse) OuterCode() int  { return r.ResponseCode }
func (r *LeadResponse) InnerCode() int  { return r.Code }
func (r *LeadResponse) Message() string { return r.ResponseMessage }

// RemoteLead is the detail record returned by GET /Lead/GetLead.
type RemoteLead struct {
	LeadNumber  string `json:"LeadNumber"`
	FirstName   string `json:"FirstName"`
	LastName    string `json:"LastName"`
	Email       string `json:"Email,omitempty"`
	Phone       string `json:"Phone,omitempty"`
	Comments    string `json:"Comments,omitempty"`
	StockNumber string `json:"StockNumber,omitempty"`
	Status      int    `json:"Status"`
}

// LeadDetailResponse is the envelope of GET /Lead/GetLead.
type LeadDetailResponse struct {
	ResponseCode    int         `json:"ResponseCode"`
	Code            int         `json:"Code"`
	Lead            *RemoteLead `json:"Lead,omitempty"`
	ResponseMessage string      `json:"ResponseMessage"`
}

func (r *LeadDetailResponse) OuterCode() int  { return r.ResponseCode }
func (r *LeadDetailResponse) InnerCode() int  { return r.Code }
func (r *LeadDetailResponse) Message() string { return r.ResponseMessage }

// LeadStatusResponse is the envelope of GET /Lead/GetLeadStatus.
type LeadStatusResponse struct {
	ResponseCode    int    `json:"ResponseCode"`
	Code            int    `json:"Code"`
	Status          int    `json:"Status"`
	ResponseMessage string `json:"ResponseMessage"`
}

func (r *LeadStatusResponse) OuterCode() int  { return r.ResponseCode }
func (r *LeadStatusResponse) InnerCode() int  { return r.Code }
func (r *LeadStatusResponse) Message() string { return r.ResponseMessage }

// RawJSON marshals a remote record for the audit copy stored alongside
// the mapped fields.
func RawJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
