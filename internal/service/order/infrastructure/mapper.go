// internal/service/order/infrastructure/mapper.go
package infrastructure

import (
	"encoding/json"

	"swiftlogistics/internal/service/order/domain"
)

// ToOrderModel 把领域模型转换为数据库模型。
func ToOrderModel(order *domain.Order) (*OrderModel, error) {
	details := ""
	if order.PackageDetails != nil {
		data, err := json.Marshal(order.PackageDetails)
		if err != nil {
			return nil, err
		}
		details = string(data)
	}
	return &OrderModel{
		ID:               order.ID,
		ClientID:         order.ClientID,
		AssignedDriverID: order.AssignedDriverID,
		PickupAddress:    order.PickupAddress,
		DeliveryAddress:  order.DeliveryAddress,
		PackageDetails:   details,
		Priority:         order.Priority,
		Status:           string(order.Status),
		CMSReference:     order.CMSReference,
		WMSReference:     order.WMSReference,
		ROSReference:     order.ROSReference,
		ErrorMessage:     order.ErrorMessage,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}, nil
}

// ToDomainOrder 把数据库模型转换为领域模型。
func ToDomainOrder(model *OrderModel) (*domain.Order, error) {
	var details map[string]interface{}
	if model.PackageDetails != "" {
		if err := json.Unmarshal([]byte(model.PackageDetails), &details); err != nil {
			return nil, err
		}
	}
	return &domain.Order{
		ID:               model.ID,
		ClientID:         model.ClientID,
		AssignedDriverID: model.AssignedDriverID,
		PickupAddress:    model.PickupAddress,
		DeliveryAddress:  model.DeliveryAddress,
		PackageDetails:   details,
		Priority:         model.Priority,
		Status:           domain.Status(model.Status),
		CMSReference:     model.CMSReference,
		WMSReference:     model.WMSReference,
		ROSReference:     model.ROSReference,
		ErrorMessage:     model.ErrorMessage,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}, nil
}

// ToDeliveryUpdateModel 把配送记录转换为数据库模型。
func ToDeliveryUpdateModel(update *domain.DeliveryUpdate) *DeliveryUpdateModel {
	return &DeliveryUpdateModel{
		ID:              update.ID,
		OrderID:         update.OrderID,
		DriverID:        update.DriverID,
		Status:          string(update.Status),
		Notes:           update.Notes,
		Location:        update.Location,
		ProofOfDelivery: update.ProofOfDelivery,
		CreatedAt:       update.CreatedAt,
	}
}

// ToDomainDeliveryUpdate 把数据库模型转换为配送记录。
func ToDomainDeliveryUpdate(model *DeliveryUpdateModel) *domain.DeliveryUpdate {
	return &domain.DeliveryUpdate{
		ID:              model.ID,
		OrderID:         model.OrderID,
		DriverID:        model.DriverID,
		Status:          domain.Status(model.Status),
		Notes:           model.Notes,
		Location:        model.Location,
		ProofOfDelivery: model.ProofOfDelivery,
		CreatedAt:       model.CreatedAt,
	}
}
