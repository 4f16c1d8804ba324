//go:generate mockgen -source=../record_repository.go -destination=./mock_record_repository.go -package=mocks
//go:generate mockgen -source=../record_validator.go  -destination=./mock_record_validator.go  -package=mocks
//go:generate mockgen -source=../batch_handler.go     -destination=./mock_batch_handler.go     -package=mocks
//go:generate mockgen -source=../logger.go            -destination=./mock_logger.go            -package=mocks
//go:generate mockgen -source=../message_consumer.go  -destination=./mock_message_consumer.go  -package=mocks

package mocks
