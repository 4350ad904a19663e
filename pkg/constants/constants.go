package constants

type ContextKey int

const (
	TxKey ContextKey = iota
	PoolKey
	LoggerKey
	ParamsKey
	TenantIDKey
	CauserIDKey
	RequestIDKey
)
