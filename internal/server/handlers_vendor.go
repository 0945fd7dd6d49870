package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) listVendors(c *gin.Context) {
	vendors, err := s.vendors.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendors": vendors, "count": len(vendors)})
}

func (s *Server) topVendors(c *gin.Context) {
	rows, err := s.vendors.TopByInvoiceTotal(c.Request.Context(), queryInt(c, "limit", 10))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendors": rows, "count": len(rows)})
}
