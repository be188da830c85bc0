package mocks

//go:generate mockery --name DataWarehouse --srcpkg github.com/jeremylongshore/diagnosticpro-schema-sql/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name RunStore --srcpkg github.com/jeremylongshore/diagnosticpro-schema-sql/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
