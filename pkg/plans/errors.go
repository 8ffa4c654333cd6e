package plans

import "errors"

var (
	ErrTierNotFound             = errors.New("tier not found in catalog")
	ErrInvalidTierConfiguration = errors.New("invalid tier configuration")
	ErrFailedToLoadTiers        = errors.New("failed to load tier catalog")
	ErrFreeTierRequired         = errors.New("catalog must define the free tier")
)
