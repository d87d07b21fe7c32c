package main

import (
	"net/http"

	"zeptical/pkg/lookup"

	"github.com/gin-gonic/gin"
)

func (s *server) listLookupHandler(c *gin.Context) {
	values, err := s.lookups.List(c.Request.Context(), c.Param("kind"))
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	respondOK(c, values, "")
}

func (s *server) addLookupHandler(c *gin.Context) {
	var req struct {
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, s.log, bindErr(err))
		return
	}
	kind := c.Param("kind")
	added, err := s.lookups.Add(c.Request.Context(), kind, req.Value)
	if err != nil {
		respondErr(c, s.log, err)
		return
	}
	if !added {
		c.JSON(http.StatusOK, envelope{Success: false, Msg: lookup.AlreadyExists(kind)})
		return
	}
	respondOK(c, nil, lookup.Saved(kind))
}
