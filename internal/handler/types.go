package handler

import "encoding/json"

// proxyRequest is the body of POST /api/proxy: a logical upstream call.
// Data rides along raw so arbitrary upstream payloads survive untouched.
type proxyRequest struct {
	Endpoint string          `json:"endpoint" binding:"required"`
	Method   string          `json:"method"`
	Data     json.RawMessage `json:"data"`
	Auth     *authPayload    `json:"auth"`
}

type authPayload struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type orderNumbersRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

type importNumbersRequest struct {
	CSVData string `json:"csv_data" binding:"required"`
}

type createAuthorizationRequest struct {
	Numero       string   `json:"numero" binding:"required"`
	DocumentRefs []string `json:"document_refs"`
}

type updateAuthorizationStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
