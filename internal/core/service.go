package core

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ServiceRegistry Service controller embedded in the Engine.
type ServiceRegistry struct {
	services     map[reflect.Type]Service // store service instances
	serviceTypes []reflect.Type           // record service register orders.
}

// NewServiceRegistry Return a raw ServiceRegistry
func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{services: make(map[reflect.Type]Service)}
}

// RegisterService Register a service to registry.
func (s *ServiceRegistry) RegisterService(service Service) error {
	kind := reflect.TypeOf(service)
	if _, exists := s.services[kind]; exists {
		return fmt.Errorf("service already exists: %v", kind)
	}
	s.services[kind] = service
	s.serviceTypes = append(s.serviceTypes, kind)
	return nil
}

// StartAll Run all registered services in separated goroutines and wait for them.
// Returns the first start failure, services that did start stay online.
func (s *ServiceRegistry) StartAll() error {
	Logger.Debugf("Starting %d services: %v", len(s.serviceTypes), s.serviceTypes)
	wg := sync.WaitGroup{}
	wg.Add(len(s.serviceTypes))
	errs := make(chan error, len(s.serviceTypes))
	for _, kind := range s.serviceTypes {
		go func(service Service) {
			defer wg.Done()
			if err := service.Start(); err != nil {
				errs <- fmt.Errorf("service %s: %w", service.Name(), err)
			}
		}(s.services[kind])
	}
	wg.Wait()
	close(errs)
	if err, failed := <-errs; failed {
		return err
	}
	Logger.Infof("Finished starting all service! Services online now: %v", s.serviceTypes)
	return nil
}

// StopAll ends every service in reverse order of registration, logging
// every service that fails to stop.
func (s *ServiceRegistry) StopAll() {
	for i := len(s.serviceTypes) - 1; i >= 0; i-- {
		kind := s.serviceTypes[i]
		if err := s.services[kind].Stop(); err != nil {
			Logger.Errorf("Could not stop the following service: %v, %v", kind, err)
		}
	}
	Logger.Infof("ALL services stopped.")
}

// Statuses report Status of every registered service, keyed by service name.
func (s *ServiceRegistry) Statuses() map[string]error {
	statuses := make(map[string]error, len(s.serviceTypes))
	for _, kind := range s.serviceTypes {
		service := s.services[kind]
		statuses[service.Name()] = service.Status()
	}
	return statuses
}

// FetchService takes in a struct pointer and sets the value of that pointer
// to a service currently stored in the service registry. This ensures the input argument is
// set to the right pointer that refers to the originally registered service.
func (s *ServiceRegistry) FetchService(service interface{}) error {
	if reflect.TypeOf(service).Kind() != reflect.Ptr {
		return fmt.Errorf("provided type %s:%w", reflect.TypeOf(service), ErrServiceFetchNonPointer)
	}
	element := reflect.ValueOf(service).Elem()
	if running, ok := s.services[element.Type()]; ok {
		element.Set(reflect.ValueOf(running))
		return nil
	}
	return fmt.Errorf("provided type %s:%w", reflect.TypeOf(service), ErrServiceFetchUnknownService)
}

var (
	ErrServiceFetchNonPointer     = errors.New("input must be of pointer type")
	ErrServiceFetchUnknownService = errors.New("service not found in registry")
)

// Service Top-level service interface.
// Start must return once the service is usable, long-running work goes to its own goroutine.
type Service interface {
	Name() string
	Init(reg *ServiceRegistry) error
	Start() error
	Stop() error
	Status() error
}
