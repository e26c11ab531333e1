package response

var messages = map[ErrCode]string{
	ErrCodeMalformedJSON:       "The JSON you provided was not well-formed or did not validate against our published format.",
	ErrCodeRequestBody:         "Request body error",
	ErrCodeResourceNotFound:    "%s",
	ErrCodeUnsupported:         "%s",
	ErrCodeInvalidValue:        "%s",
	ErrCodeDeviceCommunication: "Failed to communicate with the ventilation unit: %s",
	ErrCodeInternal:            "%s",
}

// !!! IMPORTANT PLEASE READ FIRST !!!
// You SHOULD add new code at the end of enum firstly.

var ErrMalformedJSON = &responseError{
	Code:    ErrCodeMalformedJSON,
	Message: messages[ErrCodeMalformedJSON],
}

var ErrRequestBody = &responseError{
	Code:    ErrCodeRequestBody,
	Message: messages[ErrCodeRequestBody],
}
