package service

import (
	"strings"
	"time"

	"github.com/aurelia-shop/internal/models"
	"github.com/aurelia-shop/internal/repository"

	"gorm.io/gorm"
)

// AddressService 收货地址服务
type AddressService struct {
	addressRepo repository.AddressRepository
}

// NewAddressService 创建地址服务
func NewAddressService(addressRepo repository.AddressRepository) *AddressService {
	return &AddressService{addressRepo: addressRepo}
}

// AddressInput 地址输入
type AddressInput struct {
	Recipient  string
	Phone      string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	IsDefault  bool
}

func (in *AddressInput) normalize() error {
	in.Recipient = strings.TrimSpace(in.Recipient)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Line1 = strings.TrimSpace(in.Line1)
	in.Line2 = strings.TrimSpace(in.Line2)
	in.City = strings.TrimSpace(in.City)
	in.State = strings.TrimSpace(in.State)
	in.PostalCode = strings.TrimSpace(in.PostalCode)
	in.Country = strings.ToUpper(strings.TrimSpace(in.Country))
	if in.Recipient == "" || in.Line1 == "" || in.City == "" || in.PostalCode == "" {
		return ErrInvalidInput
	}
	if len(in.Country) != 2 {
		return ErrInvalidInput
	}
	return nil
}

// ListByUser 获取用户地址列表
func (s *AddressService) ListByUser(userID uint) ([]models.Address, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.addressRepo.ListByUser(userID)
}

// GetByIDAndUser 获取用户地址详情
func (s *AddressService) GetByIDAndUser(id, userID uint) (*models.Address, error) {
	address, err := s.addressRepo.GetByIDAndUser(id, userID)
	if err != nil {
		return nil, err
	}
	if address == nil {
		return nil, ErrAddressNotFound
	}
	return address, nil
}

// Create 新增地址。用户的首个地址自动设为默认。
func (s *AddressService) Create(userID uint, input AddressInput) (*models.Address, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	if err := input.normalize(); err != nil {
		return nil, err
	}

	existing, err := s.addressRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	isDefault := input.IsDefault || len(existing) == 0

	now := time.Now()
	address := &models.Address{
		UserID:     userID,
		Recipient:  input.Recipient,
		Phone:      input.Phone,
		Line1:      input.Line1,
		Line2:      input.Line2,
		City:       input.City,
		State:      input.State,
		PostalCode: input.PostalCode,
		Country:    input.Country,
		IsDefault:  isDefault,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		addressRepo := s.addressRepo.WithTx(tx)
		if isDefault {
			if err := addressRepo.ClearDefault(userID); err != nil {
				return err
			}
		}
		return addressRepo.Create(address)
	})
	if err != nil {
		return nil, err
	}
	return address, nil
}

// Update 更新地址
func (s *AddressService) Update(id, userID uint, input AddressInput) (*models.Address, error) {
	address, err := s.addressRepo.GetByIDAndUser(id, userID)
	if err != nil {
		return nil, err
	}
	if address == nil {
		return nil, ErrAddressNotFound
	}
	if err := input.normalize(); err != nil {
		return nil, err
	}

	address.Recipient = input.Recipient
	address.Phone = input.Phone
	address.Line1 = input.Line1
	address.Line2 = input.Line2
	address.City = input.City
	address.State = input.State
	address.PostalCode = input.PostalCode
	address.Country = input.Country
	address.UpdatedAt = time.Now()

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		addressRepo := s.addressRepo.WithTx(tx)
		if input.IsDefault && !address.IsDefault {
			if err := addressRepo.ClearDefault(userID); err != nil {
				return err
			}
			address.IsDefault = true
		}
		return addressRepo.Update(address)
	})
	if err != nil {
		return nil, err
	}
	return address, nil
}

// SetDefault 设置默认地址
func (s *AddressService) SetDefault(id, userID uint) (*models.Address, error) {
	address, err := s.addressRepo.GetByIDAndUser(id, userID)
	if err != nil {
		return nil, err
	}
	if address == nil {
		return nil, ErrAddressNotFound
	}
	if address.IsDefault {
		return address, nil
	}
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		addressRepo := s.addressRepo.WithTx(tx)
		if err := addressRepo.ClearDefault(userID); err != nil {
			return err
		}
		address.IsDefault = true
		address.UpdatedAt = time.Now()
		return addressRepo.Update(address)
	})
	if err != nil {
		return nil, err
	}
	return address, nil
}

// Delete 删除地址
func (s *AddressService) Delete(id, userID uint) error {
	address, err := s.addressRepo.GetByIDAndUser(id, userID)
	if err != nil {
		return err
	}
	if address == nil {
		return ErrAddressNotFound
	}
	return s.addressRepo.Delete(id, userID)
}
