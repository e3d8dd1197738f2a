package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"attendance_gate/internal/middleware"
	"attendance_gate/internal/store"
)

type loginInput struct {
	EmployeeID string `json:"employee_id" binding:"required"`
	PIN        string `json:"pin"`
}

// Login checks the employee, issues a session token and opens the
// employee's attendance gate.
func (ctl *Controller) Login(c *gin.Context) {
	var body loginInput
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	emp, err := ctl.store.Employee(c.Request.Context(), body.EmployeeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "employee not found or invalid credentials"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error: " + err.Error()})
		}
		return
	}
	if !emp.Active() {
		logrus.WithField("employee_id", emp.ID).Warn("Inactive employee tried to log in.")
		c.JSON(http.StatusForbidden, gin.H{"error": "employee account is not active"})
		return
	}
	if emp.PinHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(emp.PinHash), []byte(body.PIN)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect PIN"})
			return
		}
	}

	token, err := ctl.tokens.GenerateToken(emp.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	g, err := ctl.gates.Open(c.Request.Context(), emp.ID)
	if err != nil {
		logrus.WithError(err).WithField("employee_id", emp.ID).Error("Failed to open attendance gate.")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load attendance state"})
		return
	}

	logrus.WithField("employee_id", emp.ID).Info("Employee logged in.")
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"employee": emp,
		"status":   g.Snapshot(),
	})
}

// Logout revokes the session token and closes the gate: scan, position
// watch and change feed all stop.
func (ctl *Controller) Logout(c *gin.Context) {
	employeeID := middleware.EmployeeID(c)
	if err := ctl.tokens.Revoke(c.Request.Context(), middleware.ClaimsFrom(c)); err != nil {
		logrus.WithError(err).WithField("employee_id", employeeID).Error("Failed to revoke session token.")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not log out"})
		return
	}
	ctl.gates.Close(employeeID)
	logrus.WithField("employee_id", employeeID).Info("Employee logged out.")
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
