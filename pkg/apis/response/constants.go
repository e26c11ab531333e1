package response

type ErrCode int

const (
	_                          ErrCode = 10000 + iota
	ErrCodeMalformedJSON               // 10001
	ErrCodeRequestBody                 // 10002
	ErrCodeResourceNotFound            // 10003
	ErrCodeUnsupported                 // 10004
	ErrCodeInvalidValue                // 10005
	ErrCodeDeviceCommunication         // 10006
	ErrCodeInternal                    // 10007
)

// !!! IMPORTANT PLEASE READ FIRST !!!
// You SHOULD add new code at the end, and append comment of number
// Meanwhile, the corresponding error message SHOULD be appended in response.messages
// The order MUST be consistent between them
