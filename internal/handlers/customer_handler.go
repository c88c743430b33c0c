package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Keoroanthony/customer-gateway/internal/apperrors"
	"github.com/Keoroanthony/customer-gateway/internal/auth"
	"github.com/Keoroanthony/customer-gateway/internal/customers"
	"github.com/Keoroanthony/customer-gateway/internal/images"
	"github.com/Keoroanthony/customer-gateway/internal/utils"
)

type CustomerHandler struct {
	svc *customers.Service
}

func NewCustomerHandler(svc *customers.Service) *CustomerHandler {
	return &CustomerHandler{svc: svc}
}

func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	principal, err := auth.PrincipalFrom(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	skip, limit, err := utils.Page(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	list, err := h.svc.List(c.Request.Context(), skip, limit, principal)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	principal, err := auth.PrincipalFrom(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	photo, closePhoto, err := formPhoto(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer closePhoto()

	customer, err := h.svc.Create(c.Request.Context(), c.PostForm("name"), c.PostForm("phone"), photo, principal)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, customer)
}

func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	principal, err := auth.PrincipalFrom(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	customer, err := h.svc.Get(c.Request.Context(), c.Param("id"), principal)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, customer)
}

func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	principal, err := auth.PrincipalFrom(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	photo, closePhoto, err := formPhoto(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer closePhoto()

	err = h.svc.Update(c.Request.Context(), c.Param("id"), c.PostForm("name"), c.PostForm("phone"), photo, principal)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Customer updated successfully"})
}

func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	principal, err := auth.PrincipalFrom(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), principal); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted successfully"})
}

// formPhoto returns the "photo" part of a multipart body, or nil when the
// request carries none. The returned func closes the part.
func formPhoto(c *gin.Context) (*images.Photo, func(), error) {
	noop := func() {}

	fh, err := c.FormFile("photo")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return nil, noop, nil
	case err != nil:
		return nil, noop, apperrors.Invalid("Invalid multipart form")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, noop, apperrors.Internal("", err)
	}

	return &images.Photo{
		Filename:    fh.Filename,
		ContentType: contentType(fh),
		Body:        f,
	}, func() { _ = f.Close() }, nil
}

func contentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
