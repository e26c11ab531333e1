package generic

import (
	"net"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Server struct {
	Router   *gin.Engine
	Address  string
	Port     int
	CertFile string
	KeyFile  string
}

func (s *Server) Addr() string {
	return net.JoinHostPort(s.Address, strconv.Itoa(s.Port))
}

// TLS reports whether both a certificate and a key were configured.
func (s *Server) TLS() bool {
	return len(s.CertFile) != 0 && len(s.KeyFile) != 0
}
