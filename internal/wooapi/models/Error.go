package models

import "fmt"

// ErrorWoo is the error body of the WooCommerce REST API.
type ErrorWoo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status     int   `json:"status"`
		ResourceId int64 `json:"resource_id"`
	} `json:"data"`
}

func (e *ErrorWoo) Error() string {
	return fmt.Sprintf("code:%s; message:%s; status:%d;", e.Code, e.Message, e.Data.Status)
}
