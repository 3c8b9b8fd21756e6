package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/app/models"
)

func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(models.StatusResponse{Status: "ok"})
}
