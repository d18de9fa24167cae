package middleware

type ctxKey int

const (
	ctxCorrelationID ctxKey = iota
	ctxSessionID
)
