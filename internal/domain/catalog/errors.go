package catalog

import "staybook/internal/pkg/apperr"

var (
	ErrPropertyNotFound = apperr.NotFound("Property.NotFound", "property not found")
	ErrRoomTypeNotFound = apperr.NotFound("RoomType.NotFound", "room type not found")
	ErrNameRequired     = apperr.Validation("Property.NameRequired", "name is required")
	ErrInvalidCapacity  = apperr.Validation("RoomType.InvalidCapacity", "room capacity must be greater than zero")
	ErrInvalidBasePrice = apperr.Validation("RoomType.InvalidBasePrice", "base price must be greater than zero")
	ErrRoomTypeMismatch = apperr.Validation("RoomType.WrongProperty", "room type does not belong to this property")
)
