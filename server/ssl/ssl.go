package ssl

import (
	"crypto/x509"
	"fmt"
	"os"

	"github.com/golang/glog"
)

// GetRootCAPool returns the system certificate pool, or an empty pool when the system has none.
func GetRootCAPool() *x509.CertPool {
	pool, err := x509.SystemCertPool()
	if err != nil {
		glog.Warningf("Could not load the system certificate pool, starting from an empty one: %v", err)
		return x509.NewCertPool()
	}
	return pool
}

// AppendPEMFileToRootCAPool adds the PEM encoded certificates in pemFileName to certPool.
// A nil pool is replaced by an empty one.
func AppendPEMFileToRootCAPool(certPool *x509.CertPool, pemFileName string) (*x509.CertPool, error) {
	if certPool == nil {
		certPool = x509.NewCertPool()
	}
	if pemFileName == "" {
		return certPool, nil
	}

	pemCerts, err := os.ReadFile(pemFileName)
	if err != nil {
		return certPool, fmt.Errorf("Failed to read file %s: %v", pemFileName, err)
	}
	if !certPool.AppendCertsFromPEM(pemCerts) {
		return certPool, fmt.Errorf("No certificates found in %s", pemFileName)
	}
	return certPool, nil
}
